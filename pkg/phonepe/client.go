package phonepe

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"researchpal-backend/pkg/config"
)

const payPath = "/pg/v1/pay"

type OrderParams struct {
	OrderID string
	Amount  int64 // minor units
	UserID  string
}

type OrderResult struct {
	MerchantTransactionID string
	RedirectURL           string
}

// Client talks to the PhonePe pay-page API. Requests and callbacks are
// authenticated with the salted-checksum scheme:
// sha256(payload + saltKey) + "###" + saltIndex.
type Client struct {
	baseURL     string
	merchantID  string
	saltKey     string
	saltIndex   string
	redirectURL string
	callbackURL string
	http        *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:     cfg.PhonePe.BaseURL,
		merchantID:  cfg.PhonePe.MerchantID,
		saltKey:     cfg.PhonePe.SaltKey,
		saltIndex:   cfg.PhonePe.SaltIndex,
		redirectURL: cfg.PhonePe.RedirectURL,
		callbackURL: cfg.PhonePe.CallbackURL,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

type payRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type payResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		InstrumentResponse struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// CreateOrder initiates a pay-page transaction and returns the gateway
// correlation id plus the URL the buyer is redirected to.
func (c *Client) CreateOrder(ctx context.Context, p OrderParams) (*OrderResult, error) {
	merchantTxnID := fmt.Sprintf("TXN_%s_%d", p.OrderID, time.Now().UnixMilli())

	payload, err := json.Marshal(payRequest{
		MerchantID:            c.merchantID,
		MerchantTransactionID: merchantTxnID,
		MerchantUserID:        p.UserID,
		Amount:                p.Amount,
		RedirectURL:           fmt.Sprintf("%s?orderId=%s", c.redirectURL, p.OrderID),
		RedirectMode:          "POST",
		CallbackURL:           c.callbackURL,
		PaymentInstrument:     paymentInstrument{Type: "PAY_PAGE"},
	})
	if err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	checksum := c.checksum(encoded + payPath)

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+payPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", checksum)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("phonepe pay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("phonepe pay request: unexpected status %s", resp.Status)
	}

	var out payResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("phonepe pay response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("phonepe pay rejected: %s", out.Message)
	}

	return &OrderResult{
		MerchantTransactionID: merchantTxnID,
		RedirectURL:           out.Data.InstrumentResponse.RedirectInfo.URL,
	}, nil
}

// VerifyChecksum validates the X-VERIFY header of an inbound callback against
// the raw request body. The comparison covers the full composite string,
// salt-index suffix included, and runs in constant time.
func (c *Client) VerifyChecksum(body []byte, received string) bool {
	expected := c.checksum(string(body))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

func (c *Client) checksum(payload string) string {
	sum := sha256.Sum256([]byte(payload + c.saltKey))
	return hex.EncodeToString(sum[:]) + "###" + c.saltIndex
}
