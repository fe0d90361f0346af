package handler

import (
	"log/slog"
	"time"

	"github.com/atlasbank/ledger/internal/api/middleware"
	"github.com/atlasbank/ledger/internal/domain/account"
	"github.com/atlasbank/ledger/internal/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles HTTP requests for account lifecycle operations
type AccountHandler struct {
	ledgerService *ledger.Service
	logger        *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, ledgerService *ledger.Service) *AccountHandler {
	return &AccountHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Open handles creation of a new account for the caller
func (h *AccountHandler) Open(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.ledgerService.OpenAccount(c.Request.Context(), userID, req.AccountType)
	if err != nil {
		h.logger.Error("Failed to open account", "user_id", userID.String(), "error", err)
		RespondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// List returns all of the caller's accounts, open and closed
func (h *AccountHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	accounts, err := h.ledgerService.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list accounts", "user_id", userID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		responses = append(responses, mapAccountToResponse(acc))
	}
	RespondOK(c, responses)
}

// GetByID retrieves one of the caller's accounts, returning 404 if it does
// not exist or belongs to someone else
func (h *AccountHandler) GetByID(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	acc, err := h.ledgerService.GetAccount(c.Request.Context(), userID, accountID)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Rename updates the account nickname. A blank nickname clears it.
func (h *AccountHandler) Rename(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	var req RenameAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.ledgerService.Rename(c.Request.Context(), userID, accountID, req.Nickname)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Close closes the account, which must carry a zero balance
func (h *AccountHandler) Close(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	acc, err := h.ledgerService.CloseAccount(c.Request.Context(), userID, accountID)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// callerAndAccount extracts the caller identity and the account path param,
// responding with the appropriate error when either is missing.
func callerAndAccount(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return uuid.Nil, uuid.Nil, false
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, accountID, true
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:        acc.ID.String(),
		Number:    acc.Number,
		Type:      acc.Type,
		Nickname:  acc.Nickname,
		Balance:   acc.Balance,
		Closed:    acc.IsClosed(),
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
	if acc.ClosedAt != nil {
		resp.ClosedAt = acc.ClosedAt.Format(time.RFC3339)
	}
	return resp
}
