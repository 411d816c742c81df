package payment

// Outcome is the terminal (or continuation) state of an authorization
// attempt.
type Outcome string

const (
	OutcomeAuthorized        Outcome = "authorized"
	OutcomeChallengeRequired Outcome = "challenge_required"
	OutcomeDeclined          Outcome = "declined"
)

// Reason qualifies a declined outcome.
type Reason string

const (
	// ReasonAlreadyPlaced: the order was finalized before; no gateway
	// call was made.
	ReasonAlreadyPlaced Reason = "already_placed"

	// ReasonGatewayError: the gateway was unreachable or answered with an
	// error or malformed body.
	ReasonGatewayError Reason = "gateway_error"

	// ReasonDeclined: a valid gateway response with a negative outcome.
	ReasonDeclined Reason = "declined"

	// ReasonThreeDSecureFailed: strong customer authentication failed,
	// distinct from a generic decline.
	ReasonThreeDSecureFailed Reason = "threed_secure_failed"

	// ReasonUnknownGatewayStatus: the gateway answered with a status this
	// integration does not know. Surfaced explicitly rather than guessed.
	ReasonUnknownGatewayStatus Reason = "unknown_gateway_status"
)

// Challenge carries the fields the browser must forward to the card
// issuer's challenge page, unchanged from the gateway response.
type Challenge struct {
	TransactionID string `json:"transactionId"`
	AcsURL        string `json:"acsUrl"`
	AcsTransID    string `json:"acsTransId"`
	DsTransID     string `json:"dsTransId"`
	CReq          string `json:"cReq"`
	PaReq         string `json:"paReq"`
}

// Result is the normalized outcome of an authorization step. Challenge is
// set exactly when Outcome is OutcomeChallengeRequired; Reason exactly
// when it is OutcomeDeclined.
type Result struct {
	Outcome       Outcome    `json:"outcome"`
	TransactionID string     `json:"transactionId,omitempty"`
	Status        string     `json:"status,omitempty"`
	Reason        Reason     `json:"reason,omitempty"`
	Message       string     `json:"message,omitempty"`
	Challenge     *Challenge `json:"challenge,omitempty"`

	// Captured reports whether an authorized payment settled immediately.
	// False for deferred authorizations awaiting a release instruction.
	Captured bool `json:"captured"`
}

// Authorized reports whether the attempt ended in a successful payment.
func (r *Result) Authorized() bool {
	return r.Outcome == OutcomeAuthorized
}

func declined(reason Reason, message string) *Result {
	return &Result{Outcome: OutcomeDeclined, Reason: reason, Message: message}
}
