package opayo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lunarphp/opayo/internal/pkg/httpclient"
)

const (
	testBaseURL = "https://pi-test.sagepay.com/api/v1/"
	liveBaseURL = "https://pi-live.sagepay.com/api/v1/"

	// The transaction-status poll is the only retried call: 5 attempts
	// total with a fixed spacing, then give up.
	statusAttempts = 5
)

// ErrNoChallengePayload is returned by CompleteChallenge when the outcome
// carries neither a cRes nor a paRes. No gateway call is made.
var ErrNoChallengePayload = errors.New("opayo: challenge outcome has neither cRes nor paRes")

// GatewayError is a failure reported by the gateway, either as a non-2xx
// response or as a structured error body under a success status.
type GatewayError struct {
	HTTPStatus  int
	Code        int
	Description string
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("opayo: %s (code %d, http %d)", e.Description, e.Code, e.HTTPStatus)
	}
	return fmt.Sprintf("opayo: gateway error (http %d)", e.HTTPStatus)
}

// Config holds the client credentials and environment selection.
type Config struct {
	Env      string // "test" or "live"
	Vendor   string
	Key      string
	Password string
}

// Client is the authenticated REST client for the gateway.
type Client struct {
	http      *httpclient.Client
	vendor    string
	logger    *zap.Logger
	retryWait time.Duration
}

// New creates a gateway client. Credentials are sent as HTTP basic auth
// (base64 of key:password); the environment picks the base URL.
func New(cfg Config, logger *zap.Logger) *Client {
	baseURL := testBaseURL
	if cfg.Env == "live" {
		baseURL = liveBaseURL
	}

	return &Client{
		http: httpclient.New().
			WithBaseURL(baseURL).
			WithBasicAuth(cfg.Key, cfg.Password),
		vendor:    cfg.Vendor,
		logger:    logger,
		retryWait: time.Second,
	}
}

// WithBaseURL overrides the environment-selected base URL.
func (c *Client) WithBaseURL(url string) *Client {
	c.http.WithBaseURL(url)
	return c
}

// WithRetryWait overrides the spacing between transaction-status attempts.
func (c *Client) WithRetryWait(d time.Duration) *Client {
	c.retryWait = d
	return c
}

// MerchantSessionKey mints a short-lived key authorizing the browser
// widget to tokenise card data. Callers must mint a fresh one after a
// failed challenge before re-submitting.
func (c *Client) MerchantSessionKey(ctx context.Context) (string, error) {
	resp, err := c.http.Post(ctx, "merchant-session-keys", map[string]string{
		"vendorName": c.vendor,
	})
	if err != nil {
		return "", fmt.Errorf("opayo: merchant session key request failed: %w", err)
	}
	if !resp.Successful() {
		return "", c.decodeError(resp)
	}

	var body struct {
		MerchantSessionKey string `json:"merchantSessionKey"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.MerchantSessionKey == "" {
		return "", &GatewayError{HTTPStatus: resp.StatusCode, Description: "malformed merchant session key response"}
	}
	return body.MerchantSessionKey, nil
}

// Authorize creates a transaction from an authorization request.
func (c *Client) Authorize(ctx context.Context, req AuthorizationRequest) (*TransactionResponse, error) {
	payload, err := BuildAuthPayload(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(ctx, "transactions", payload)
	if err != nil {
		return nil, fmt.Errorf("opayo: authorize request failed: %w", err)
	}
	if !resp.Successful() {
		return nil, c.decodeError(resp)
	}

	var out TransactionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &GatewayError{HTTPStatus: resp.StatusCode, Description: "malformed transaction response"}
	}
	return &out, nil
}

// CompleteChallenge posts the 3DS outcome back to the gateway. A
// structured cRes goes to the challenge endpoint; a legacy PaRes goes to
// the 3d-secure endpoint. The returned body is not authoritative for the
// final state; re-fetch the transaction afterwards.
func (c *Client) CompleteChallenge(ctx context.Context, outcome ChallengeOutcome) (*ChallengeResponse, error) {
	var path string
	var payload map[string]string

	switch {
	case outcome.CRes != "":
		path = "transactions/" + outcome.TransactionID + "/3d-secure-challenge"
		payload = map[string]string{"cRes": outcome.CRes}
	case outcome.PaRes != "":
		path = "transactions/" + outcome.TransactionID + "/3d-secure"
		payload = map[string]string{"paRes": outcome.PaRes}
	default:
		return nil, ErrNoChallengePayload
	}

	resp, err := c.http.Post(ctx, path, payload)
	if err != nil {
		return nil, fmt.Errorf("opayo: challenge completion failed: %w", err)
	}
	if !resp.Successful() {
		return nil, c.decodeError(resp)
	}

	var out ChallengeResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &GatewayError{HTTPStatus: resp.StatusCode, Description: "malformed challenge response"}
	}
	return &out, nil
}

// Transaction fetches a transaction by id, retrying transient failures up
// to 4 additional times with fixed spacing. Respects ctx cancellation
// between attempts.
func (c *Client) Transaction(ctx context.Context, id string) (*Transaction, error) {
	var lastErr error

	for attempt := 1; attempt <= statusAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryWait):
			}
		}

		resp, err := c.http.Get(ctx, "transactions/"+id)
		if err != nil {
			lastErr = fmt.Errorf("opayo: transaction fetch failed: %w", err)
			continue
		}
		if !resp.Successful() {
			lastErr = c.decodeError(resp)
			continue
		}

		var out Transaction
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			lastErr = &GatewayError{HTTPStatus: resp.StatusCode, Description: "malformed transaction body"}
			continue
		}
		return &out, nil
	}

	c.logger.Warn("Opayo transaction fetch exhausted retries",
		zap.String("transaction_id", id), zap.Error(lastErr))
	return nil, lastErr
}

// Capture releases a deferred transaction for settlement.
func (c *Client) Capture(ctx context.Context, reference string, amount int) (*InstructionResponse, error) {
	resp, err := c.http.Post(ctx, "transactions/"+reference+"/instructions", map[string]interface{}{
		"instructionType": "release",
		"amount":          amount,
	})
	if err != nil {
		return nil, fmt.Errorf("opayo: capture request failed: %w", err)
	}
	// The gateway sometimes wraps errors in a 2xx body.
	if gerr := c.bodyError(resp); gerr != nil {
		return nil, gerr
	}

	var out InstructionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &GatewayError{HTTPStatus: resp.StatusCode, Description: "malformed instruction response"}
	}
	return &out, nil
}

// Refund creates a Refund transaction against a settled one.
func (c *Client) Refund(ctx context.Context, reference, vendorTxCode string, amount int, description string) (*RefundResponse, error) {
	if description == "" {
		description = "Webstore Refund"
	}
	resp, err := c.http.Post(ctx, "transactions", map[string]interface{}{
		"transactionType":        TransactionTypeRefund,
		"referenceTransactionId": reference,
		"vendorTxCode":           vendorTxCode,
		"amount":                 amount,
		"description":            description,
	})
	if err != nil {
		return nil, fmt.Errorf("opayo: refund request failed: %w", err)
	}
	if gerr := c.bodyError(resp); gerr != nil {
		return nil, gerr
	}

	var out RefundResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &GatewayError{HTTPStatus: resp.StatusCode, Description: "malformed refund response"}
	}
	return &out, nil
}

// decodeError turns a non-2xx response into a GatewayError carrying the
// gateway-provided description where one exists.
func (c *Client) decodeError(resp *httpclient.Response) *GatewayError {
	gerr := parseErrorBody(resp.Body)
	if gerr == nil {
		gerr = &GatewayError{}
	}
	gerr.HTTPStatus = resp.StatusCode
	return gerr
}

// bodyError reports a failure for any response carrying a structured error
// code, regardless of HTTP status.
func (c *Client) bodyError(resp *httpclient.Response) *GatewayError {
	if gerr := parseErrorBody(resp.Body); gerr != nil {
		gerr.HTTPStatus = resp.StatusCode
		return gerr
	}
	if !resp.Successful() {
		return &GatewayError{HTTPStatus: resp.StatusCode}
	}
	return nil
}

func parseErrorBody(body []byte) *GatewayError {
	var wrapped struct {
		Errors []struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
		Code        int    `json:"code"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil
	}
	if len(wrapped.Errors) > 0 {
		return &GatewayError{Code: wrapped.Errors[0].Code, Description: wrapped.Errors[0].Description}
	}
	if wrapped.Code != 0 {
		return &GatewayError{Code: wrapped.Code, Description: wrapped.Description}
	}
	return nil
}
