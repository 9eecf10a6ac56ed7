package controller

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/luminapay/ms-go-callbacks/app/entity"
	"github.com/luminapay/ms-go-callbacks/app/factory"
	"github.com/luminapay/ms-go-callbacks/app/mapper"
	"github.com/luminapay/ms-go-callbacks/app/service"
	"github.com/luminapay/ms-go-callbacks/app/types"
)

const maxCallbackBodyBytes = 1 << 20

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CreatePayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrBackendUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPaymentAlreadyExists):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			c.logger.WithError(err).Error("Create payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	req, err := types.NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.GetPayment(ctx.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		}
		c.logger.WithError(err).Error("Get payment failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) ListPayments(ctx echo.Context) error {
	req, err := types.NewListPaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListPayments(ctx.Request().Context(), req)
	if err != nil {
		c.logger.WithError(err).Error("List payments failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToResponse(items)})
}

func (c *PaymentController) CancelPayment(ctx echo.Context) error {
	req, err := types.NewCancelPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CancelPayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			c.logger.WithError(err).Error("Cancel payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

// HandleGatewayCallback receives one gateway delivery. The status code is the
// acknowledgement contract: 2xx tells the gateway to stop redelivering, 5xx
// tells it to try again. Rejected and duplicate deliveries are acknowledged
// because redelivering them can never change the result.
func (c *PaymentController) HandleGatewayCallback(ctx echo.Context) error {
	token := ctx.Param("token")
	if token == "" {
		return c.writeError(ctx, http.StatusBadRequest, "callback token is required")
	}

	payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxCallbackBodyBytes))
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "unreadable request body")
	}

	headers := flattenHeaders(ctx.Request().Header)

	outcome, err := c.paymentService.HandleCallbackByToken(ctx.Request().Context(), token, payload, headers)
	switch outcome {
	case types.OutcomeApplied, types.OutcomeDuplicate, types.OutcomeRejected:
		return ctx.JSON(http.StatusOK, &types.CallbackAckResponse{Result: outcome.String()})

	case types.OutcomePermanentFailure:
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		}
		// Acknowledged: the delivery can never succeed, redelivery is waste.
		return ctx.JSON(http.StatusOK, &types.CallbackAckResponse{Result: outcome.String()})

	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Gateway callback deferred")
		return c.writeError(ctx, http.StatusBadGateway, "callback deferred, retry scheduled")
	}
}

func (c *PaymentController) ListRetries(ctx echo.Context) error {
	req, err := types.NewListRetriesRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListRetries(ctx.Request().Context(), req)
	if err != nil {
		c.logger.WithError(err).Error("List retries failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListRetriesResponse{Retries: mapper.RetryRecordsToResponse(items)})
}

// RedirectSuccess is where the gateway sends the customer's browser after
// checkout. The browser is not trusted: the payment must actually be paid,
// otherwise the customer lands on the failure page.
func (c *PaymentController) RedirectSuccess(ctx echo.Context) error {
	payment, errResp := c.paymentForRedirect(ctx)
	if payment == nil {
		return errResp
	}

	target := payment.SuccessURL
	if !payment.IsFullyPaid() {
		target = payment.FailureURL
	}
	if target == "" {
		return c.writeError(ctx, http.StatusNotFound, "no redirect url configured")
	}
	return ctx.Redirect(http.StatusFound, appendPaymentID(target, payment.ID))
}

func (c *PaymentController) RedirectFailure(ctx echo.Context) error {
	payment, errResp := c.paymentForRedirect(ctx)
	if payment == nil {
		return errResp
	}

	if payment.FailureURL == "" {
		return c.writeError(ctx, http.StatusNotFound, "no redirect url configured")
	}
	return ctx.Redirect(http.StatusFound, appendPaymentID(payment.FailureURL, payment.ID))
}

func (c *PaymentController) paymentForRedirect(ctx echo.Context) (*entity.Payment, error) {
	req, err := types.NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		return nil, c.writeError(ctx, http.StatusBadRequest, "invalid payment id")
	}

	item, err := c.paymentService.GetPayment(ctx.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return nil, c.writeError(ctx, http.StatusNotFound, "payment not found")
		}
		c.logger.WithError(err).Error("Redirect lookup failed")
		return nil, c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return item, nil
}

func appendPaymentID(target string, id uint64) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}
	query := parsed.Query()
	query.Set("payment_id", strconv.FormatUint(id, 10))
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) > 0 {
			flat[name] = values[0]
		}
	}
	return flat
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
