package service

import (
	"fmt"
	"time"

	"github.com/luminapay/ms-go-callbacks/app/entity"
	"github.com/luminapay/ms-go-callbacks/app/gateway"
	"github.com/luminapay/ms-go-callbacks/app/types"
)

// normalizeEvent turns a raw gateway callback into a gateway-agnostic status
// event. Decoding is delegated to the backend's adapter; this layer only
// checks structural completeness. Every error returned here is permanent:
// the same bytes will never normalize differently later. Replays verify
// signature authenticity without the freshness window, since the stored
// headers carry the original delivery's timestamp.
func (s *PaymentService) normalizeEvent(payment *entity.Payment, payload []byte, headers map[string]string, replay bool) (*entity.StatusEvent, error) {
	adapter, err := s.gatewayReg.Get(payment.Backend)
	if err != nil {
		return nil, err
	}

	verified := adapter.Verify(payload, headers)
	if replay {
		verified = adapter.VerifyReplay(payload, headers)
	}
	if !verified {
		return nil, gateway.ErrInvalidSignature
	}

	decoded, err := adapter.Decode(payload, headers)
	if err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, fmt.Errorf("%w: adapter returned no event", gateway.ErrMalformedCallback)
	}

	outcome, ok := types.ParseEventOutcome(decoded.Outcome)
	if !ok {
		return nil, fmt.Errorf("%w: unknown outcome %q", gateway.ErrMalformedCallback, decoded.Outcome)
	}
	if decoded.GatewayReference == "" {
		return nil, fmt.Errorf("%w: gateway reference is missing", gateway.ErrMalformedCallback)
	}
	if decoded.AmountCents != nil && *decoded.AmountCents < 0 {
		return nil, fmt.Errorf("%w: negative amount", gateway.ErrMalformedCallback)
	}

	occurredAt := time.Now().UTC()
	if decoded.OccurredAt != nil {
		occurredAt = *decoded.OccurredAt
	}

	return &entity.StatusEvent{
		PaymentID:        payment.ID,
		Outcome:          outcome,
		AmountCents:      decoded.AmountCents,
		GatewayReference: decoded.GatewayReference,
		OccurredAt:       occurredAt,
		RawPayload:       payload,
	}, nil
}

// allowsOverpayment reads the backend policy; unknown backends never allow it.
func (s *PaymentService) allowsOverpayment(backend string) bool {
	adapter, err := s.gatewayReg.Get(backend)
	if err != nil {
		return false
	}
	return adapter.AllowsOverpayment()
}
