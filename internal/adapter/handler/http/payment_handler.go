package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	domainErr "github.com/payflowhq/payflow/internal/domain/errors"
	"github.com/payflowhq/payflow/internal/domain/model"
	"github.com/payflowhq/payflow/internal/middleware/auth"
	"github.com/payflowhq/payflow/internal/usecase"
	"go.uber.org/zap"
)

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	logger         *zap.Logger
	paymentService *usecase.PaymentService
}

// NewPaymentHandler creates a new payment handler instance
func NewPaymentHandler(logger *zap.Logger, paymentService *usecase.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		logger:         logger,
		paymentService: paymentService,
	}
}

type createPaymentRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Recipient   string `json:"recipient" validate:"required,max=150"`
	Description string `json:"description" validate:"max=150"`
	Currency    string `json:"currency" validate:"omitempty,max=5"`
}

type paymentResponse struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Recipient   string    `json:"recipient"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		AccountID:   p.AccountID,
		Recipient:   p.Recipient,
		Amount:      p.Amount.StringFixed(2),
		Currency:    p.Currency,
		Description: p.Description,
		Status:      string(p.Status),
		Message:     p.StatusMessage(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req createPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	payment, err := h.paymentService.SubmitPayment(c.Request().Context(), user.AccountID, usecase.SubmitPaymentInput{
		Amount:      req.Amount,
		Recipient:   req.Recipient,
		Description: req.Description,
		Currency:    req.Currency,
	})
	if err != nil {
		var invalidAmount *domainErr.InvalidAmountError
		var insufficient *domainErr.InsufficientBalanceError
		switch {
		case errors.As(err, &invalidAmount):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": invalidAmount.Error(),
			})
		case errors.As(err, &insufficient):
			// A payment row may still exist when the shortfall was only
			// detected under the row lock.
			resp := echo.Map{"error": insufficient.Error()}
			if payment != nil {
				resp["payment"] = newPaymentResponse(payment)
			}
			return c.JSON(http.StatusUnprocessableEntity, resp)
		case errors.Is(err, domainErr.ErrAccountNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "account not found",
			})
		default:
			h.logger.Error("Failed to submit payment",
				zap.String("account_id", user.AccountID.String()),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "failed to process payment",
			})
		}
	}

	return c.JSON(http.StatusCreated, newPaymentResponse(payment))
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid payment ID format",
		})
	}

	payment, err := h.paymentService.GetPayment(c.Request().Context(), user.AccountID, paymentID)
	if err != nil {
		if errors.Is(err, domainErr.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "payment not found",
			})
		}
		h.logger.Error("Failed to get payment",
			zap.String("payment_id", paymentID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve payment",
		})
	}

	return c.JSON(http.StatusOK, newPaymentResponse(payment))
}

// ListPayments handles GET /api/v1/payments
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	payments, err := h.paymentService.ListPayments(c.Request().Context(), user.AccountID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list payments",
			zap.String("account_id", user.AccountID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve payments",
		})
	}

	responses := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, newPaymentResponse(&payments[i]))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"payments": responses,
		"count":    len(responses),
	})
}

// RefundPayment handles POST /api/v1/payments/:id/refund
func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid payment ID format",
		})
	}

	payment, err := h.paymentService.RefundPayment(c.Request().Context(), user.AccountID, paymentID)
	if err != nil {
		var invalidTransition *domainErr.InvalidTransitionError
		switch {
		case errors.Is(err, domainErr.ErrPaymentNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "payment not found",
			})
		case errors.As(err, &invalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{
				"error": invalidTransition.Error(),
			})
		default:
			h.logger.Error("Failed to refund payment",
				zap.String("payment_id", paymentID.String()),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "failed to refund payment",
			})
		}
	}

	return c.JSON(http.StatusOK, newPaymentResponse(payment))
}
