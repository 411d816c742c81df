package opayo

import (
	"errors"
	"fmt"
)

// Wire shapes for the transaction-creation body. Field names follow the
// gateway schema exactly.

type cardPayload struct {
	MerchantSessionKey string `json:"merchantSessionKey"`
	CardIdentifier     string `json:"cardIdentifier"`
	Save               bool   `json:"save,omitempty"`
	Reusable           bool   `json:"reusable,omitempty"`
}

type paymentMethodPayload struct {
	Card cardPayload `json:"card"`
}

type billingAddressPayload struct {
	Address1   string `json:"address1"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type priorAuthInfoPayload struct {
	ThreeDSReqPriorRef string `json:"threeDSReqPriorRef"`
}

type scaPayload struct {
	CustomerMobilePhone      string                `json:"customerMobilePhone,omitempty"`
	TransType                string                `json:"transType"`
	BrowserLanguage          string                `json:"browserLanguage"`
	ChallengeWindowSize      string                `json:"challengeWindowSize"`
	BrowserIP                string                `json:"browserIP"`
	NotificationURL          string                `json:"notificationURL"`
	BrowserAcceptHeader      string                `json:"browserAcceptHeader"`
	BrowserJavascriptEnabled bool                  `json:"browserJavascriptEnabled"`
	BrowserUserAgent         string                `json:"browserUserAgent"`
	BrowserJavaEnabled       bool                  `json:"browserJavaEnabled"`
	BrowserColorDepth        int                   `json:"browserColorDepth"`
	BrowserScreenHeight      int                   `json:"browserScreenHeight"`
	BrowserScreenWidth       int                   `json:"browserScreenWidth"`
	BrowserTZ                int                   `json:"browserTZ"`
	PriorAuthenticationInfo  *priorAuthInfoPayload `json:"threeDSRequestorPriorAuthenticationInfo,omitempty"`
}

type credentialTypePayload struct {
	CofUsage      string `json:"cofUsage"`
	InitiatedType string `json:"initiatedType"`
	MitType       string `json:"mitType"`
}

// AuthPayload is the transaction-creation request body.
type AuthPayload struct {
	TransactionType              string                 `json:"transactionType"`
	PaymentMethod                paymentMethodPayload   `json:"paymentMethod"`
	VendorTxCode                 string                 `json:"vendorTxCode"`
	Amount                       int                    `json:"amount"`
	Currency                     string                 `json:"currency"`
	Description                  string                 `json:"description"`
	Apply3DSecure                string                 `json:"apply3DSecure"`
	CustomerFirstName            string                 `json:"customerFirstName"`
	CustomerLastName             string                 `json:"customerLastName"`
	BillingAddress               billingAddressPayload  `json:"billingAddress"`
	StrongCustomerAuthentication scaPayload             `json:"strongCustomerAuthentication"`
	EntryMethod                  string                 `json:"entryMethod"`
	CredentialType               *credentialTypePayload `json:"credentialType,omitempty"`
}

// BuildAuthPayload maps an AuthorizationRequest onto the gateway's
// transaction-creation body. Pure; no side effects.
func BuildAuthPayload(req AuthorizationRequest) (*AuthPayload, error) {
	if req.CardIdentifier == "" {
		return nil, errors.New("opayo: card identifier is required")
	}
	if req.MerchantSessionKey == "" {
		return nil, errors.New("opayo: merchant session key is required")
	}
	if req.VendorTxCode == "" {
		return nil, errors.New("opayo: vendor tx code is required")
	}
	if len(req.VendorTxCode) > 40 {
		return nil, fmt.Errorf("opayo: vendor tx code %q exceeds 40 characters", req.VendorTxCode)
	}

	transactionType := req.TransactionType
	if transactionType == "" {
		transactionType = TransactionTypePayment
	}

	description := req.Description
	if description == "" {
		description = "Webstore Transaction"
	}

	payload := &AuthPayload{
		TransactionType: transactionType,
		PaymentMethod: paymentMethodPayload{
			Card: cardPayload{
				MerchantSessionKey: req.MerchantSessionKey,
				CardIdentifier:     req.CardIdentifier,
			},
		},
		VendorTxCode:      req.VendorTxCode,
		Amount:            req.Amount,
		Currency:          req.CurrencyCode,
		Description:       description,
		Apply3DSecure:     req.Apply3DSecure,
		CustomerFirstName: req.FirstName,
		CustomerLastName:  req.LastName,
		BillingAddress: billingAddressPayload{
			Address1:   req.BillingAddress.LineOne,
			City:       req.BillingAddress.City,
			PostalCode: req.BillingAddress.Postcode,
			Country:    req.BillingAddress.CountryISO,
		},
		StrongCustomerAuthentication: scaPayload{
			CustomerMobilePhone:      req.CustomerPhone,
			TransType:                "GoodsAndServicePurchase",
			BrowserLanguage:          req.Fingerprint.Language,
			ChallengeWindowSize:      req.Fingerprint.ChallengeWindowSize,
			BrowserIP:                req.Fingerprint.IPAddress,
			NotificationURL:          req.NotificationURL,
			BrowserAcceptHeader:      req.Fingerprint.AcceptHeader,
			BrowserJavascriptEnabled: true,
			BrowserUserAgent:         req.Fingerprint.UserAgent,
			BrowserJavaEnabled:       req.Fingerprint.JavaEnabled,
			BrowserColorDepth:        req.Fingerprint.ColorDepth,
			BrowserScreenHeight:      req.Fingerprint.ScreenHeight,
			BrowserScreenWidth:       req.Fingerprint.ScreenWidth,
			BrowserTZ:                req.Fingerprint.TimezoneOffset,
		},
		EntryMethod: "Ecommerce",
	}

	if req.SaveCard {
		payload.CredentialType = &credentialTypePayload{
			CofUsage:      "First",
			InitiatedType: "CIT",
			MitType:       "Unscheduled",
		}
		payload.PaymentMethod.Card.Save = true
	}

	if req.Reusable {
		payload.CredentialType = &credentialTypePayload{
			CofUsage:      "Subsequent",
			InitiatedType: "CIT",
			MitType:       "Unscheduled",
		}
		payload.PaymentMethod.Card.Reusable = true
	}

	if req.PriorAuthCode != "" {
		payload.StrongCustomerAuthentication.PriorAuthenticationInfo = &priorAuthInfoPayload{
			ThreeDSReqPriorRef: req.PriorAuthCode,
		}
	}

	return payload, nil
}
