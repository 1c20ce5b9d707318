package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ValidateTwilioSignature validates that a request came from Twilio
func ValidateTwilioSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}

	if err := r.ParseForm(); err != nil {
		return false
	}

	payload := buildSignaturePayload(webhookURL, r.PostForm)
	expectedSignature := computeSignature(payload, authToken)

	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

// buildSignaturePayload creates the payload string for signature verification:
// the URL followed by every form key/value pair in key order.
func buildSignaturePayload(url string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(url)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}
	return payload.String()
}

// computeSignature computes the HMAC-SHA1 signature
func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// InboundMessage is one WhatsApp message extracted from a Twilio webhook
// payload. From is the bare phone number, the "whatsapp:" prefix stripped;
// Body is trimmed of surrounding whitespace.
type InboundMessage struct {
	MessageSid string
	AccountSid string
	From       string
	To         string
	Body       string
}

// ParseInbound parses a Twilio WhatsApp webhook request.
func ParseInbound(r *http.Request) (*InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("messaging: parse form: %w", err)
	}

	return &InboundMessage{
		MessageSid: r.FormValue("MessageSid"),
		AccountSid: r.FormValue("AccountSid"),
		From:       StripWhatsAppPrefix(r.FormValue("From")),
		To:         StripWhatsAppPrefix(r.FormValue("To")),
		Body:       strings.TrimSpace(r.FormValue("Body")),
	}, nil
}

// StripWhatsAppPrefix removes the "whatsapp:" channel prefix from an address.
func StripWhatsAppPrefix(addr string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(addr), "whatsapp:"))
}

// WhatsAppAddress prepends the "whatsapp:" channel prefix when missing.
func WhatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
