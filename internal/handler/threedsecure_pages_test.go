package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunarphp/opayo/internal/payment"
)

func TestIframeRendersChallengeForm(t *testing.T) {
	e := echo.New()
	h := NewThreeDSecureHandler(zap.NewNop())

	q := url.Values{}
	q.Set("acsUrl", "https://acs.example.com/challenge")
	q.Set("creq", "creq-blob")
	req := httptest.NewRequest(http.MethodGet, "/opayo-threedsecure?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Iframe(e.NewContext(req, rec)))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, `action="https://acs.example.com/challenge"`)
	assert.Contains(t, body, `name="creq" value="creq-blob"`)
	assert.NotContains(t, body, `name="PaReq"`)
}

func TestIframeLegacyFields(t *testing.T) {
	e := echo.New()
	h := NewThreeDSecureHandler(zap.NewNop())

	q := url.Values{}
	q.Set("acsUrl", "https://acs.example.com/challenge")
	q.Set("pareq", "pareq-blob")
	q.Set("md", "md-blob")
	q.Set("termUrl", "https://shop.example.com/opayo-threedsecure-response")
	req := httptest.NewRequest(http.MethodGet, "/opayo-threedsecure?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Iframe(e.NewContext(req, rec)))

	body := rec.Body.String()
	assert.Contains(t, body, `name="PaReq" value="pareq-blob"`)
	assert.Contains(t, body, `name="MD" value="md-blob"`)
	assert.Contains(t, body, `name="TermUrl"`)
}

func TestIframeRequiresAcsURL(t *testing.T) {
	e := echo.New()
	h := NewThreeDSecureHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/opayo-threedsecure", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Iframe(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResponsePreservesACSFieldNames(t *testing.T) {
	e := echo.New()
	h := NewThreeDSecureHandler(zap.NewNop())

	form := url.Values{}
	form.Set("cres", "cres-blob")
	form.Set("PaRes", "pares-blob")
	form.Set("md", "md-blob")
	form.Set("mdx", "mdx-blob")

	req := httptest.NewRequest(http.MethodPost, "/opayo-threedsecure-response",
		strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Response(e.NewContext(req, rec)))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "opayo_threed_secure_response")
	assert.Contains(t, body, `"cres-blob"`)
	assert.Contains(t, body, `"pares-blob"`)
	assert.Contains(t, body, `"md-blob"`)
	assert.Contains(t, body, `"mdx-blob"`)
}

func TestResultStatus(t *testing.T) {
	tests := []struct {
		name   string
		result *payment.Result
		want   int
	}{
		{"authorized", &payment.Result{Outcome: payment.OutcomeAuthorized}, http.StatusOK},
		{"challenge required", &payment.Result{Outcome: payment.OutcomeChallengeRequired}, http.StatusOK},
		{"already placed", &payment.Result{Outcome: payment.OutcomeDeclined, Reason: payment.ReasonAlreadyPlaced}, http.StatusConflict},
		{"declined", &payment.Result{Outcome: payment.OutcomeDeclined, Reason: payment.ReasonDeclined}, http.StatusPaymentRequired},
		{"unknown status", &payment.Result{Outcome: payment.OutcomeDeclined, Reason: payment.ReasonUnknownGatewayStatus}, http.StatusPaymentRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resultStatus(tt.result))
		})
	}
}
