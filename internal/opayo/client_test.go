package opayo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Config{
		Env:      "test",
		Vendor:   "testvendor",
		Key:      "integration-key",
		Password: "integration-pass",
	}, zap.NewNop()).
		WithBaseURL(srv.URL).
		WithRetryWait(time.Millisecond)
	return c, srv
}

func TestMerchantSessionKey(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/merchant-session-keys", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"merchantSessionKey": "msk-abc"})
	}))

	key, err := c.MerchantSessionKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "msk-abc", key)
	assert.Equal(t, "testvendor", gotBody["vendorName"])

	// base64("integration-key:integration-pass")
	assert.Equal(t, "Basic aW50ZWdyYXRpb24ta2V5OmludGVncmF0aW9uLXBhc3M=", gotAuth)
}

func TestMerchantSessionKeyGatewayError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":        1001,
			"description": "Authentication failed",
		})
	}))

	_, err := c.MerchantSessionKey(context.Background())
	require.Error(t, err)

	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, http.StatusUnauthorized, gerr.HTTPStatus)
	assert.Equal(t, 1001, gerr.Code)
	assert.Equal(t, "Authentication failed", gerr.Description)
}

func TestCompleteChallengeUsesChallengeEndpointForCRes(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"status": StatusOk, "statusCode": "0000"})
	}))

	resp, err := c.CompleteChallenge(context.Background(), ChallengeOutcome{
		TransactionID: "T-123",
		CRes:          "cres-blob",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOk, resp.Status)
	assert.Equal(t, "/transactions/T-123/3d-secure-challenge", gotPath)
	assert.Equal(t, map[string]string{"cRes": "cres-blob"}, gotBody)
}

func TestCompleteChallengeUsesLegacyEndpointForPaRes(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"status": StatusOk})
	}))

	_, err := c.CompleteChallenge(context.Background(), ChallengeOutcome{
		TransactionID: "T-123",
		PaRes:         "pares-blob",
	})
	require.NoError(t, err)
	assert.Equal(t, "/transactions/T-123/3d-secure", gotPath)
	assert.Equal(t, map[string]string{"paRes": "pares-blob"}, gotBody)
}

func TestCompleteChallengePrefersCResWhenBothSet(t *testing.T) {
	var gotPath string

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"status": StatusOk})
	}))

	_, err := c.CompleteChallenge(context.Background(), ChallengeOutcome{
		TransactionID: "T-123",
		CRes:          "cres-blob",
		PaRes:         "pares-blob",
	})
	require.NoError(t, err)
	assert.Equal(t, "/transactions/T-123/3d-secure-challenge", gotPath)
}

func TestCompleteChallengeWithoutPayloadFailsFast(t *testing.T) {
	var calls int32

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := c.CompleteChallenge(context.Background(), ChallengeOutcome{TransactionID: "T-123"})
	require.ErrorIs(t, err, ErrNoChallengePayload)
	assert.Zero(t, atomic.LoadInt32(&calls), "no gateway request must be made")
}

func TestTransactionRetriesThenSucceeds(t *testing.T) {
	var calls int32

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":        StatusOk,
			"transactionId": "T-123",
			"amount":        map[string]int{"totalAmount": 1000},
		})
	}))

	tx, err := c.Transaction(context.Background(), "T-123")
	require.NoError(t, err)
	assert.Equal(t, StatusOk, tx.Status)
	assert.Equal(t, 1000, tx.Amount.TotalAmount)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTransactionGivesUpAfterFiveAttempts(t *testing.T) {
	var calls int32

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Transaction(context.Background(), "T-404")
	require.Error(t, err)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))

	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, http.StatusNotFound, gerr.HTTPStatus)
}

func TestTransactionRetriesMalformedBody(t *testing.T) {
	var calls int32

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Write([]byte("[not-a-transaction]"))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": StatusOk, "transactionId": "T-123"})
	}))

	tx, err := c.Transaction(context.Background(), "T-123")
	require.NoError(t, err)
	assert.Equal(t, StatusOk, tx.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTransactionStopsOnContextCancel(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	c.WithRetryWait(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.Transaction(ctx, "T-404")
	require.ErrorIs(t, err, context.Canceled)
}

func TestCaptureRejectsErrorBodyUnderSuccessStatus(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/T-123/instructions", r.URL.Path)
		// 200 OK but the body carries a structured error.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{
				{"code": 1017, "description": "Transaction not in a releasable state"},
			},
		})
	}))

	_, err := c.Capture(context.Background(), "T-123", 1000)
	require.Error(t, err)

	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, http.StatusOK, gerr.HTTPStatus)
	assert.Equal(t, 1017, gerr.Code)
}

func TestCaptureSendsReleaseInstruction(t *testing.T) {
	var gotBody map[string]interface{}

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{
			"instructionType": "release",
			"date":            "2026-02-03T10:00:00.000+00:00",
		})
	}))

	resp, err := c.Capture(context.Background(), "T-123", 1500)
	require.NoError(t, err)
	assert.Equal(t, "release", resp.InstructionType)
	assert.Equal(t, "release", gotBody["instructionType"])
	assert.EqualValues(t, 1500, gotBody["amount"])
}

func TestRefundCreatesRefundTransaction(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{
			"status":        StatusOk,
			"transactionId": "R-456",
		})
	}))

	resp, err := c.Refund(context.Background(), "T-123", "ord42-refund-1", 500, "")
	require.NoError(t, err)
	assert.Equal(t, "R-456", resp.TransactionID)
	assert.Equal(t, "/transactions", gotPath)
	assert.Equal(t, TransactionTypeRefund, gotBody["transactionType"])
	assert.Equal(t, "T-123", gotBody["referenceTransactionId"])
	assert.Equal(t, "ord42-refund-1", gotBody["vendorTxCode"])
	assert.EqualValues(t, 500, gotBody["amount"])
	assert.Equal(t, "Webstore Refund", gotBody["description"])
}

func TestRefundRejectsErrorBodyUnderSuccessStatus(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":        1018,
			"description": "Refund amount exceeds remaining balance",
		})
	}))

	_, err := c.Refund(context.Background(), "T-123", "ord42-refund-2", 999999, "")
	require.Error(t, err)

	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 1018, gerr.Code)
}

func TestNewDefaultsToOneSecondRetrySpacing(t *testing.T) {
	c := New(Config{Env: "test"}, zap.NewNop())
	assert.Equal(t, time.Second, c.retryWait)
}

func TestTransactionAttemptsAreSpaced(t *testing.T) {
	var calls int32

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": StatusOk, "transactionId": "T-123"})
	}))
	c.WithRetryWait(30 * time.Millisecond)

	start := time.Now()
	_, err := c.Transaction(context.Background(), "T-123")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond,
		"each retry must wait the configured spacing")
}

func TestEnvironmentSelectsBaseURL(t *testing.T) {
	live := New(Config{Env: "live"}, zap.NewNop())
	test := New(Config{Env: "test"}, zap.NewNop())

	assert.Equal(t, liveBaseURL, live.http.BaseURL())
	assert.Equal(t, testBaseURL, test.http.BaseURL())
}
