package opayo

// Gateway status values the integration understands. Anything else is
// surfaced as an unknown status, never guessed at.
const (
	StatusOk         = "Ok"
	StatusThreeDAuth = "3DAuth"
	StatusNotAuthed  = "NotAuthed"
	StatusRejected   = "Rejected"

	// StatusCodeThreeDSFailed is returned on a challenge completion whose
	// strong authentication failed, even with an HTTP 2xx status.
	StatusCodeThreeDSFailed = "4026"

	// TransactionTypePayment captures immediately; Deferred needs a later
	// release instruction.
	TransactionTypePayment  = "Payment"
	TransactionTypeDeferred = "Deferred"
	TransactionTypeRefund   = "Refund"
)

// ChallengeWindowSize values accepted by the gateway.
const (
	ChallengeWindowSmall  = "Small"
	ChallengeWindowMedium = "Medium"
	ChallengeWindowLarge  = "Large"
)

// Address is the billing address block of an authorization.
type Address struct {
	LineOne    string
	City       string
	Postcode   string
	CountryISO string
}

// BrowserFingerprint carries the browser environment fields the 3DS2
// strongCustomerAuthentication block requires. Captured once per
// submission on the client, immutable afterwards.
type BrowserFingerprint struct {
	Language            string
	JavaEnabled         bool
	ColorDepth          int
	ScreenHeight        int
	ScreenWidth         int
	TimezoneOffset      int // minutes
	UserAgent           string
	AcceptHeader        string
	ChallengeWindowSize string
	IPAddress           string
}

// AuthorizationRequest is everything needed to create a gateway
// transaction. The card itself never appears here: CardIdentifier is the
// opaque token minted by the gateway's browser widget.
type AuthorizationRequest struct {
	CardIdentifier     string
	MerchantSessionKey string
	VendorTxCode       string
	Amount             int // minor units
	CurrencyCode       string
	Description        string
	TransactionType    string // Payment or Deferred
	Apply3DSecure      string
	NotificationURL    string

	FirstName      string
	LastName       string
	CustomerPhone  string
	BillingAddress Address
	Fingerprint    BrowserFingerprint

	SaveCard      bool
	Reusable      bool
	PriorAuthCode string
}

// ChallengeOutcome is the payload posted back by the ACS after the
// cardholder completes (or abandons) the 3DS challenge. Exactly one of
// CRes/PaRes is set; that choice selects the completion endpoint.
type ChallengeOutcome struct {
	TransactionID string
	CRes          string
	PaRes         string
}

// TransactionResponse is the body of POST /transactions.
type TransactionResponse struct {
	Status        string `json:"status"`
	StatusCode    string `json:"statusCode"`
	StatusDetail  string `json:"statusDetail"`
	TransactionID string `json:"transactionId"`

	// 3DS challenge fields, present when Status is 3DAuth.
	AcsURL     string `json:"acsUrl"`
	AcsTransID string `json:"acsTransId"`
	DsTransID  string `json:"dsTransId"`
	CReq       string `json:"cReq"`
	PaReq      string `json:"paReq"`
}

// ChallengeResponse is the body of the 3d-secure / 3d-secure-challenge
// completion endpoints. It is not authoritative for the final outcome;
// the transaction must be re-fetched afterwards.
type ChallengeResponse struct {
	Status       string `json:"status"`
	StatusCode   string `json:"statusCode"`
	StatusDetail string `json:"statusDetail"`
}

// Transaction is the body of GET /transactions/{id}.
type Transaction struct {
	Status          string `json:"status"`
	StatusCode      string `json:"statusCode"`
	StatusDetail    string `json:"statusDetail"`
	TransactionID   string `json:"transactionId"`
	TransactionType string `json:"transactionType"`
	RetrievalRef    int    `json:"retrievalReference"`

	Amount struct {
		TotalAmount int `json:"totalAmount"`
	} `json:"amount"`

	PaymentMethod struct {
		Card struct {
			CardType       string `json:"cardType"`
			LastFourDigits string `json:"lastFourDigits"`
			Reusable       bool   `json:"reusable"`
			CardIdentifier string `json:"cardIdentifier"`
		} `json:"card"`
	} `json:"paymentMethod"`

	AvsCvcCheck struct {
		Status       string `json:"status"`
		Address      string `json:"address"`
		PostalCode   string `json:"postalCode"`
		SecurityCode string `json:"securityCode"`
	} `json:"avsCvcCheck"`
}

// InstructionResponse is the body of POST /transactions/{id}/instructions.
type InstructionResponse struct {
	InstructionType string `json:"instructionType"`
	Date            string `json:"date"`
}

// RefundResponse is the body of a Refund transaction creation.
type RefundResponse struct {
	Status        string `json:"status"`
	StatusCode    string `json:"statusCode"`
	StatusDetail  string `json:"statusDetail"`
	TransactionID string `json:"transactionId"`
}
