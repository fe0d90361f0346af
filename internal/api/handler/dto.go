package handler

// OpenAccountRequest represents a request to open a new account
type OpenAccountRequest struct {
	AccountType string `json:"account_type" binding:"required"`
}

// RenameAccountRequest updates an account nickname. An empty or blank
// nickname clears it.
type RenameAccountRequest struct {
	Nickname string `json:"nickname"`
}

// AmountRequest represents a deposit or withdrawal
type AmountRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description,omitempty"`
}

// TransferRequest moves funds to another account addressed by number
type TransferRequest struct {
	DestinationNumber string `json:"destination_number" binding:"required"`
	Amount            int64  `json:"amount" binding:"required,gt=0"`
	Memo              string `json:"memo,omitempty"`
}

// BillPayRequest pays a bill from the account. The payee may be an internal
// account number or an external payee name.
type BillPayRequest struct {
	Payee  string `json:"payee" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Memo   string `json:"memo,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string  `json:"id"`
	Number    string  `json:"number"`
	Type      string  `json:"type"`
	Nickname  *string `json:"nickname,omitempty"`
	Balance   int64   `json:"balance"`
	Closed    bool    `json:"closed"`
	ClosedAt  string  `json:"closed_at,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID             string  `json:"id"`
	AccountID      string  `json:"account_id"`
	CounterpartyID *string `json:"counterparty_id,omitempty"`
	Type           string  `json:"type"`
	Amount         int64   `json:"amount"`
	Description    *string `json:"description,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// ReceiptResponse reports a committed single-account mutation
type ReceiptResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Balance     int64               `json:"balance"`
}

// TransferResponse reports a committed transfer or bill payment. Destination
// is absent for external bill payments.
type TransferResponse struct {
	Source        TransactionResponse  `json:"source"`
	Destination   *TransactionResponse `json:"destination,omitempty"`
	SourceBalance int64                `json:"source_balance"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
