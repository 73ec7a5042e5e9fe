package iban

import "github.com/deppfellow/iban-manager/internal/validation"

// ------------------------------------------------------------

type ListIBANsPayload struct {
	Search string `query:"search" validate:"max=100"`
}

func (p *ListIBANsPayload) Validate() error {
	return validation.Struct(p)
}

// ------------------------------------------------------------

type CreateIBANPayload struct {
	IBANNumber    string `json:"iban_number" validate:"required,max=64"`
	BankName      string `json:"bank_name" validate:"required,notblank,max=100"`
	AccountHolder string `json:"account_holder" validate:"required,notblank,max=100"`
	Description   string `json:"description"`
}

func (p *CreateIBANPayload) Validate() error {
	return validation.Struct(p)
}

// ------------------------------------------------------------

type GetIBANPayload struct {
	ID int64 `param:"id" validate:"gt=0"`
}

func (p *GetIBANPayload) Validate() error {
	return validation.Struct(p)
}

// ------------------------------------------------------------

// UpdateIBANPayload carries a partial update. A nil field is left as is.
type UpdateIBANPayload struct {
	ID            int64   `param:"id" json:"-" validate:"gt=0"`
	IBANNumber    *string `json:"iban_number" validate:"omitnil,max=64"`
	BankName      *string `json:"bank_name" validate:"omitnil,notblank,max=100"`
	AccountHolder *string `json:"account_holder" validate:"omitnil,notblank,max=100"`
	Description   *string `json:"description"`
}

func (p *UpdateIBANPayload) Validate() error {
	return validation.Struct(p)
}

// ------------------------------------------------------------

type DeleteIBANPayload struct {
	ID int64 `param:"id" validate:"gt=0"`
}

func (p *DeleteIBANPayload) Validate() error {
	return validation.Struct(p)
}

// ------------------------------------------------------------

type ValidateIBANPayload struct {
	IBANNumber string `json:"iban_number" validate:"required"`
}

func (p *ValidateIBANPayload) Validate() error {
	return validation.Struct(p)
}
