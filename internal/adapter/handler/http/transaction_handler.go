package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/payflowhq/payflow/internal/domain/model"
	"github.com/payflowhq/payflow/internal/middleware/auth"
	"github.com/payflowhq/payflow/internal/usecase"
	"go.uber.org/zap"
)

// TransactionHandler handles ledger history HTTP requests
type TransactionHandler struct {
	logger         *zap.Logger
	paymentService *usecase.PaymentService
}

// NewTransactionHandler creates a new transaction handler instance
func NewTransactionHandler(logger *zap.Logger, paymentService *usecase.PaymentService) *TransactionHandler {
	return &TransactionHandler{
		logger:         logger,
		paymentService: paymentService,
	}
}

type transactionResponse struct {
	ID          uuid.UUID `json:"id"`
	PaymentID   uuid.UUID `json:"payment_id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func newTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		PaymentID:   t.PaymentID,
		Type:        string(t.Type),
		Amount:      t.Amount.StringFixed(2),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

// ListTransactions handles GET /api/v1/transactions
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
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

	transactions, err := h.paymentService.ListTransactions(c.Request().Context(), user.AccountID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list transactions",
			zap.String("account_id", user.AccountID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve transactions",
		})
	}

	responses := make([]transactionResponse, 0, len(transactions))
	for i := range transactions {
		responses = append(responses, newTransactionResponse(&transactions[i]))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transactions": responses,
		"count":        len(responses),
	})
}

// parsePagination reads optional limit/offset query parameters.
func parsePagination(c echo.Context) (limit, offset int, err error) {
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("invalid limit parameter")
		}
	}
	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter")
		}
	}
	return limit, offset, nil
}
