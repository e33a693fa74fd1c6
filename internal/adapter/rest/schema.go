package rest

// OwnerPathSchema is the :owner path segment
type OwnerPathSchema struct {
	Owner string `validate:"required,uuid"`
}

// OperationPathSchema addresses an operation of an owner
type OperationPathSchema struct {
	Owner     string `validate:"required,uuid"`
	Operation string `validate:"required,oneof=debit credit transfer freeze_wallet unfreeze_wallet buy_asset sell_asset mark_price originate_loan apply_loan_repayment record_income record_deduction file_tax_return"`
	// Idempotency-Key header
	IdempotencyKey string `validate:"omitempty,max=128,printascii"`
}

// EntityPathSchema addresses an entity
type EntityPathSchema struct {
	Kind string `validate:"required,oneof=wallet holding portfolio loan tax_ledger"`
	ID   string `validate:"required,uuid"`
}

// ProvisionSchema is the body of a provisioning request
type ProvisionSchema struct {
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

// CommentaryQuerySchema bounds the commentary listing
type CommentaryQuerySchema struct {
	Limit int `validate:"gte=0,lte=100"`
}

// ErrorResponseSchema is returned for every failed request
type ErrorResponseSchema struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
