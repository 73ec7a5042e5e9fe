package iban

import (
	"github.com/deppfellow/iban-manager/internal/model"
	"github.com/uptrace/bun"
)

// IBAN is a stored bank account record.
// Number is always kept in normalized form (uppercase, no spaces).
type IBAN struct {
	bun.BaseModel `bun:"table:ibans,alias:i" json:"-"`

	model.Base
	Number        string `bun:"iban_number,type:varchar(34),notnull,unique" json:"iban_number"`
	BankName      string `bun:"bank_name,type:varchar(100),notnull" json:"bank_name"`
	AccountHolder string `bun:"account_holder,type:varchar(100),notnull" json:"account_holder"`
	Description   string `bun:"description,notnull,default:''" json:"description"`
}

// ListFilter narrows a listing. The zero value lists everything.
type ListFilter struct {
	Search string
}

// ValidationResult is the answer of the validate-only operation.
// FormattedIBAN is nil when the number is invalid.
type ValidationResult struct {
	IsValid       bool    `json:"is_valid"`
	FormattedIBAN *string `json:"formatted_iban"`
}
