package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/atlasbank/ledger/internal/domain/statement"
	"github.com/atlasbank/ledger/internal/domain/transaction"
	"github.com/atlasbank/ledger/internal/ledger"
	"github.com/gin-gonic/gin"
)

// LedgerHandler handles HTTP requests for balance mutations, transfers, the
// transaction log, reconciliation, and the statement read model
type LedgerHandler struct {
	ledgerService *ledger.Service
	coordinator   *ledger.Coordinator
	statements    statement.Repository
	logger        *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(
	logger *slog.Logger,
	ledgerService *ledger.Service,
	coordinator *ledger.Coordinator,
	statements statement.Repository,
) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		coordinator:   coordinator,
		statements:    statements,
		logger:        logger,
	}
}

// Deposit credits funds to the account
func (h *LedgerHandler) Deposit(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	receipt, err := h.ledgerService.Deposit(c.Request.Context(), userID, accountID, req.Amount, req.Description)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapReceiptToResponse(receipt))
}

// Withdraw debits funds from the account
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	receipt, err := h.ledgerService.Withdraw(c.Request.Context(), userID, accountID, req.Amount, req.Description)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapReceiptToResponse(receipt))
}

// Transfer moves funds to another account addressed by number
func (h *LedgerHandler) Transfer(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	receipt, err := h.coordinator.Transfer(c.Request.Context(), userID, accountID, req.DestinationNumber, req.Amount, req.Memo)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapTransferToResponse(receipt))
}

// BillPay pays a bill from the account. Internal payees get a two-sided
// transfer; external payees a one-sided debit.
func (h *LedgerHandler) BillPay(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	var req BillPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	receipt, err := h.coordinator.BillPay(c.Request.Context(), userID, accountID, req.Payee, req.Amount, req.Memo)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapTransferToResponse(receipt))
}

// Transactions lists the account's ledger entries newest first
func (h *LedgerHandler) Transactions(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	offset := (params.Page - 1) * params.PerPage
	entries, total, err := h.ledgerService.Transactions(c.Request.Context(), userID, accountID, params.PerPage, offset)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(entries))
	for _, txn := range entries {
		responses = append(responses, mapTransactionToResponse(txn))
	}
	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, int(total))
}

// Reconciliation recomputes the balance from the transaction log and reports
// whether it matches the stored balance
func (h *LedgerHandler) Reconciliation(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	rec, err := h.ledgerService.Reconcile(c.Request.Context(), userID, accountID)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Statement serves the eventually-consistent MongoDB read model. Ownership is
// checked against the authoritative store first.
func (h *LedgerHandler) Statement(c *gin.Context) {
	userID, accountID, ok := callerAndAccount(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	if _, err := h.ledgerService.GetAccount(c.Request.Context(), userID, accountID); err != nil {
		RespondLedgerError(c, err)
		return
	}

	offset := (params.Page - 1) * params.PerPage
	entries, err := h.statements.ListByAccount(c.Request.Context(), accountID, params.PerPage, offset)
	if err != nil {
		h.logger.Error("Failed to list statement entries", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}
	total, err := h.statements.CountByAccount(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to count statement entries", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, entries, params.Page, params.PerPage, int(total))
}

// mapTransactionToResponse maps a ledger entry to a transaction response DTO
func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          txn.ID.String(),
		AccountID:   txn.AccountID.String(),
		Type:        string(txn.Type),
		Amount:      txn.Amount,
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
	}
	if txn.CounterpartyID != nil {
		id := txn.CounterpartyID.String()
		resp.CounterpartyID = &id
	}
	return resp
}

func mapReceiptToResponse(receipt *ledger.Receipt) ReceiptResponse {
	return ReceiptResponse{
		Transaction: mapTransactionToResponse(receipt.Transaction),
		Balance:     receipt.Balance,
	}
}

func mapTransferToResponse(receipt *ledger.TransferReceipt) TransferResponse {
	resp := TransferResponse{
		Source:        mapTransactionToResponse(receipt.Source),
		SourceBalance: receipt.SourceBalance,
	}
	if receipt.Destination != nil {
		dest := mapTransactionToResponse(receipt.Destination)
		resp.Destination = &dest
	}
	return resp
}
