package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lunarphp/opayo/internal/models"
	"github.com/lunarphp/opayo/internal/opayo"
	"github.com/lunarphp/opayo/internal/payment"
	"github.com/lunarphp/opayo/internal/pkg/telegram"
	"github.com/lunarphp/opayo/internal/pkg/utils"
	"github.com/lunarphp/opayo/internal/repository"
)

// PaymentHandler exposes the payment flow over HTTP: session keys,
// authorization, 3DS completion, and the ops capture/refund endpoints.
type PaymentHandler struct {
	orders       *repository.OrderRepository
	transactions *repository.TransactionRepository
	reusables    *repository.ReusablePaymentRepository
	gateway      payment.Gateway
	authorizer   *payment.Authorizer
	recorder     *payment.Recorder
	notifier     *telegram.Notifier
	logger       *zap.Logger
}

// PaymentRepos bundles the repositories the payment handler needs.
type PaymentRepos struct {
	Order           *repository.OrderRepository
	Transaction     *repository.TransactionRepository
	ReusablePayment *repository.ReusablePaymentRepository
}

func NewPaymentHandler(
	repos *PaymentRepos,
	gateway payment.Gateway,
	authorizer *payment.Authorizer,
	recorder *payment.Recorder,
	notifier *telegram.Notifier,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		orders:       repos.Order,
		transactions: repos.Transaction,
		reusables:    repos.ReusablePayment,
		gateway:      gateway,
		authorizer:   authorizer,
		recorder:     recorder,
		notifier:     notifier,
		logger:       logger,
	}
}

// browserRequest mirrors the field names the tokenisation page submits.
type browserRequest struct {
	Language            string `json:"browserLanguage"`
	ChallengeWindowSize string `json:"challengeWindowSize"`
	UserAgent           string `json:"browserUserAgent"`
	JavaEnabled         bool   `json:"browserJavaEnabled"`
	ColorDepth          int    `json:"browserColorDepth"`
	ScreenHeight        int    `json:"browserScreenHeight"`
	ScreenWidth         int    `json:"browserScreenWidth"`
	TZ                  int    `json:"browserTZ"`
}

type authorizeRequest struct {
	CardIdentifier     string         `json:"card_identifier"`
	MerchantSessionKey string         `json:"merchant_session_key"`
	SaveCard           bool           `json:"save"`
	Reusable           bool           `json:"reusable"`
	Browser            browserRequest `json:"browser"`
}

type threeDSecureRequest struct {
	TransactionID string `json:"transaction_id"`
	CRes          string `json:"cres"`
	PaRes         string `json:"pares"`
	MD            string `json:"md"`
	MDX           string `json:"mdx"`
}

type captureRequest struct {
	Amount int `json:"amount"`
}

type refundRequest struct {
	Amount int    `json:"amount"`
	Notes  string `json:"notes"`
}

// SessionKey mints a merchant session key for the browser widget.
func (h *PaymentHandler) SessionKey(c echo.Context) error {
	key, err := h.gateway.MerchantSessionKey(c.Request().Context())
	if err != nil {
		h.logger.Error("Merchant session key failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"status": false,
			"msg":    "could not create a merchant session key",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"merchantSessionKey": key,
	})
}

// Authorize runs a payment attempt for an order.
func (h *PaymentHandler) Authorize(c echo.Context) error {
	order, err := h.loadOrder(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"status": false,
			"msg":    "order not found",
		})
	}

	var req authorizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status": false,
			"msg":    "invalid request body",
		})
	}
	if req.CardIdentifier == "" || req.MerchantSessionKey == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status": false,
			"msg":    "card_identifier and merchant_session_key are required",
		})
	}

	card := payment.CardDetails{
		CardIdentifier:     req.CardIdentifier,
		MerchantSessionKey: req.MerchantSessionKey,
		SaveCard:           req.SaveCard,
		Reusable:           req.Reusable,
		Fingerprint: opayo.BrowserFingerprint{
			Language:            req.Browser.Language,
			JavaEnabled:         req.Browser.JavaEnabled,
			ColorDepth:          req.Browser.ColorDepth,
			ScreenHeight:        req.Browser.ScreenHeight,
			ScreenWidth:         req.Browser.ScreenWidth,
			TimezoneOffset:      req.Browser.TZ,
			UserAgent:           req.Browser.UserAgent,
			AcceptHeader:        c.Request().Header.Get("Accept"),
			ChallengeWindowSize: req.Browser.ChallengeWindowSize,
			IPAddress:           c.RealIP(),
		},
	}

	// Returning customers paying with a stored token skip a fresh
	// challenge when a prior authentication reference is on file.
	if req.Reusable {
		if saved, err := h.reusables.FindByToken(req.CardIdentifier); err == nil {
			card.PriorAuthCode = saved.AuthCode
		}
	}

	result := h.authorizer.Authorize(c.Request().Context(), order, card)

	// Deferred authorizations are not captured yet; ops hears about those
	// when the release instruction goes through.
	if result.Authorized() && result.Captured {
		h.notifier.PaymentCaptured(order.Reference, result.TransactionID, order.Total, order.CurrencyCode)
	}

	return c.JSON(resultStatus(result), result)
}

// ThreeDSecure completes a pending 3DS challenge for an order.
func (h *PaymentHandler) ThreeDSecure(c echo.Context) error {
	order, err := h.loadOrder(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"status": false,
			"msg":    "order not found",
		})
	}

	var req threeDSecureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status": false,
			"msg":    "invalid request body",
		})
	}
	if req.TransactionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status": false,
			"msg":    "transaction_id is required",
		})
	}

	result := h.authorizer.CompleteChallenge(c.Request().Context(), order, opayo.ChallengeOutcome{
		TransactionID: req.TransactionID,
		CRes:          req.CRes,
		PaRes:         req.PaRes,
	})

	if result.Authorized() && result.Captured {
		h.notifier.PaymentCaptured(order.Reference, result.TransactionID, order.Total, order.CurrencyCode)
	}

	return c.JSON(resultStatus(result), result)
}

// Capture releases a deferred transaction. Ops endpoint.
func (h *PaymentHandler) Capture(c echo.Context) error {
	parent, err := h.loadTransaction(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"status": false,
			"msg":    "transaction not found",
		})
	}

	var req captureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status": false,
			"msg":    "invalid request body",
		})
	}
	amount := req.Amount
	if amount <= 0 {
		amount = parent.Amount
	}

	_, err = h.gateway.Capture(c.Request().Context(), parent.Reference, amount)
	success := err == nil
	notes := ""
	if err != nil {
		h.logger.Error("Opayo capture failed",
			zap.String("reference", parent.Reference), zap.Error(err))
		notes = err.Error()
	}

	row, rerr := h.recorder.RecordCapture(parent, amount, success, notes)
	if rerr != nil {
		h.logger.Error("Failed to record capture", zap.Error(rerr))
	}

	if !success {
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"status": false,
			"msg":    "capture failed",
		})
	}

	if order, oerr := h.orders.FindByID(parent.OrderID); oerr == nil {
		h.notifier.PaymentCaptured(order.Reference, parent.Reference, amount, order.CurrencyCode)
	}

	return c.JSON(http.StatusOK, row)
}

// Refund refunds a captured transaction. Ops endpoint.
func (h *PaymentHandler) Refund(c echo.Context) error {
	parent, err := h.loadTransaction(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"status": false,
			"msg":    "transaction not found",
		})
	}

	var req refundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status": false,
			"msg":    "invalid request body",
		})
	}
	amount := req.Amount
	if amount <= 0 {
		amount = parent.Amount
	}

	vendorTxCode := utils.VendorTxCode(parent.OrderID)
	resp, err := h.gateway.Refund(c.Request().Context(), parent.Reference, vendorTxCode, amount, req.Notes)

	success := err == nil && resp.Status == opayo.StatusOk
	reference := parent.Reference
	status := "Failed"
	if err != nil {
		h.logger.Error("Opayo refund failed",
			zap.String("reference", parent.Reference), zap.Error(err))
	} else {
		reference = resp.TransactionID
		status = resp.Status
	}

	row, rerr := h.recorder.RecordRefund(parent, reference, amount, success, status, req.Notes)
	if rerr != nil {
		h.logger.Error("Failed to record refund", zap.Error(rerr))
	}

	if !success {
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"status": false,
			"msg":    "refund failed",
		})
	}

	if order, oerr := h.orders.FindByID(parent.OrderID); oerr == nil {
		h.notifier.RefundIssued(order.Reference, reference, amount, order.CurrencyCode)
	}

	return c.JSON(http.StatusOK, row)
}

func (h *PaymentHandler) loadOrder(c echo.Context) (*models.Order, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, err
	}
	return h.orders.FindByID(uint(id))
}

func (h *PaymentHandler) loadTransaction(c echo.Context) (*models.Transaction, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, err
	}
	return h.transactions.FindByID(uint(id))
}

// resultStatus maps an authorization result to an HTTP status.
func resultStatus(r *payment.Result) int {
	switch {
	case r.Authorized(), r.Outcome == payment.OutcomeChallengeRequired:
		return http.StatusOK
	case r.Reason == payment.ReasonAlreadyPlaced:
		return http.StatusConflict
	default:
		return http.StatusPaymentRequired
	}
}
