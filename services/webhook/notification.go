package webhook

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"researchpal-backend/services/order"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Notification is the normalized form of a verified gateway callback. The
// gateway-specific parsers produce it before any ledger logic runs; the
// reconciler never inspects raw payloads.
type Notification struct {
	Gateway       order.Gateway
	ExternalTxnID string
	Outcome       Outcome
	// Credits echoes the purchased amount when the gateway carries it.
	// Informational only; the order row is authoritative for the grant.
	Credits int64
}

// PhonePe delivers the event base64-encoded inside a single envelope field.
type phonepeCallback struct {
	Response string `json:"response"`
}

type phonepeEvent struct {
	Code string `json:"code"`
	Data struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		State                 string `json:"state"`
		Amount                int64  `json:"amount"`
	} `json:"data"`
}

func parsePhonePe(body []byte) (*Notification, error) {
	var cb phonepeCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("malformed callback body: %w", err)
	}
	if cb.Response == "" {
		return nil, fmt.Errorf("callback body missing response envelope")
	}

	decoded, err := base64.StdEncoding.DecodeString(cb.Response)
	if err != nil {
		return nil, fmt.Errorf("response envelope is not valid base64: %w", err)
	}

	var ev phonepeEvent
	if err := json.Unmarshal(decoded, &ev); err != nil {
		return nil, fmt.Errorf("malformed callback event: %w", err)
	}
	if ev.Data.MerchantTransactionID == "" {
		return nil, fmt.Errorf("callback event missing merchantTransactionId")
	}

	outcome := OutcomeFailure
	if ev.Data.State == "COMPLETED" {
		outcome = OutcomeSuccess
	}

	return &Notification{
		Gateway:       order.GatewayPhonePe,
		ExternalTxnID: ev.Data.MerchantTransactionID,
		Outcome:       outcome,
	}, nil
}

// checkoutSession is the slice of the Stripe event object the reconciler
// needs: the session id correlates to the order, the metadata echoes the
// purchase request.
type checkoutSession struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

func parseStripeSession(raw json.RawMessage) (*Notification, error) {
	var sess checkoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("malformed checkout session: %w", err)
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("checkout session missing id")
	}

	credits, _ := strconv.ParseInt(sess.Metadata["credits"], 10, 64)

	return &Notification{
		Gateway:       order.GatewayStripe,
		ExternalTxnID: sess.ID,
		Outcome:       OutcomeSuccess,
		Credits:       credits,
	}, nil
}
