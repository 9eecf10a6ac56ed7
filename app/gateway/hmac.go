package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultSignatureHeader = "X-Signature"

type HMACConfig struct {
	Name             string
	Secret           string
	SignatureHeader  string
	ToleranceSeconds int64
	AllowOverpayment bool
}

// HMACAdapter decodes the JSON callback format shared by gateways that sign
// their notifications with a timestamped HMAC-SHA256 header of the form
// "t=<unix>,v1=<hex digest>" over "<unix>.<payload>".
type HMACAdapter struct {
	cfg HMACConfig
}

func NewHMACAdapter(cfg HMACConfig) *HMACAdapter {
	if strings.TrimSpace(cfg.SignatureHeader) == "" {
		cfg.SignatureHeader = defaultSignatureHeader
	}
	if cfg.ToleranceSeconds <= 0 {
		cfg.ToleranceSeconds = 300
	}
	return &HMACAdapter{cfg: cfg}
}

func (a *HMACAdapter) Name() string {
	return a.cfg.Name
}

func (a *HMACAdapter) AllowsOverpayment() bool {
	return a.cfg.AllowOverpayment
}

func (a *HMACAdapter) Verify(payload []byte, headers map[string]string) bool {
	sig, ok := a.parseSignature(headers)
	if !ok {
		return false
	}

	now := time.Now().Unix()
	if now-sig.timestamp > a.cfg.ToleranceSeconds || sig.timestamp-now > a.cfg.ToleranceSeconds {
		return false
	}
	return a.signatureMatches(payload, sig)
}

// VerifyReplay skips the freshness window: the signed timestamp of a stored
// delivery is as old as the delivery itself, not evidence of tampering.
func (a *HMACAdapter) VerifyReplay(payload []byte, headers map[string]string) bool {
	sig, ok := a.parseSignature(headers)
	if !ok {
		return false
	}
	return a.signatureMatches(payload, sig)
}

func (a *HMACAdapter) Decode(payload []byte, _ map[string]string) (*DecodedEvent, error) {
	var body struct {
		Reference   string `json:"reference"`
		Outcome     string `json:"outcome"`
		AmountCents *int64 `json:"amount_cents"`
		OccurredAt  string `json:"occurred_at"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	if strings.TrimSpace(body.Reference) == "" {
		return nil, fmt.Errorf("%w: reference is missing", ErrMalformedCallback)
	}
	if strings.TrimSpace(body.Outcome) == "" {
		return nil, fmt.Errorf("%w: outcome is missing", ErrMalformedCallback)
	}

	decoded := &DecodedEvent{
		GatewayReference: strings.TrimSpace(body.Reference),
		Outcome:          strings.TrimSpace(body.Outcome),
		AmountCents:      body.AmountCents,
	}

	if raw := strings.TrimSpace(body.OccurredAt); raw != "" {
		occurredAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad occurred_at: %v", ErrMalformedCallback, err)
		}
		occurredAt = occurredAt.UTC()
		decoded.OccurredAt = &occurredAt
	}

	return decoded, nil
}

type parsedSignature struct {
	timestamp  int64
	rawTS      string
	candidates []string
}

func (a *HMACAdapter) parseSignature(headers map[string]string) (parsedSignature, bool) {
	if strings.TrimSpace(a.cfg.Secret) == "" {
		return parsedSignature{}, false
	}

	signatureHeader := strings.TrimSpace(headerValue(headers, a.cfg.SignatureHeader))
	if signatureHeader == "" {
		return parsedSignature{}, false
	}

	var ts string
	candidates := make([]string, 0, 1)
	for _, part := range strings.Split(signatureHeader, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "t=") {
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		}
		if strings.HasPrefix(part, "v1=") {
			candidates = append(candidates, strings.TrimSpace(strings.TrimPrefix(part, "v1=")))
		}
	}
	if ts == "" || len(candidates) == 0 {
		return parsedSignature{}, false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return parsedSignature{}, false
	}

	return parsedSignature{timestamp: tsUnix, rawTS: ts, candidates: candidates}, true
}

func (a *HMACAdapter) signatureMatches(payload []byte, sig parsedSignature) bool {
	mac := hmac.New(sha256.New, []byte(a.cfg.Secret))
	_, _ = mac.Write([]byte(sig.rawTS + "." + string(payload)))
	expected := mac.Sum(nil)

	for _, candidate := range sig.candidates {
		raw, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, raw) {
			return true
		}
	}
	return false
}

// headerValue does a case-insensitive lookup, since replayed headers may not
// preserve canonical casing.
func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
