package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	domainErr "github.com/payflowhq/payflow/internal/domain/errors"
	"github.com/payflowhq/payflow/internal/middleware/auth"
	"github.com/payflowhq/payflow/internal/usecase"
	"go.uber.org/zap"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	logger         *zap.Logger
	paymentService *usecase.PaymentService
}

// NewAccountHandler creates a new account handler instance
func NewAccountHandler(logger *zap.Logger, paymentService *usecase.PaymentService) *AccountHandler {
	return &AccountHandler{
		logger:         logger,
		paymentService: paymentService,
	}
}

// GetBalance handles GET /api/v1/balance
func (h *AccountHandler) GetBalance(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	account, err := h.paymentService.GetBalance(c.Request().Context(), user.AccountID)
	if err != nil {
		if errors.Is(err, domainErr.ErrAccountNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "account not found",
			})
		}
		h.logger.Error("Failed to get balance",
			zap.String("account_id", user.AccountID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve balance",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"account_id": account.ID,
		"balance":    account.Balance.StringFixed(2),
		"currency":   "USD",
	})
}
