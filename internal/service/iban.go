package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/iban-manager/internal/errs"
	libiban "github.com/deppfellow/iban-manager/internal/lib/iban"
	"github.com/deppfellow/iban-manager/internal/model/iban"
	"github.com/deppfellow/iban-manager/internal/repository"
	"github.com/deppfellow/iban-manager/internal/sqlerr"
	"github.com/deppfellow/iban-manager/internal/validation"
	"github.com/rs/zerolog"
)

const (
	CodeIBANInvalid       = "IBAN_INVALID"
	CodeIBANAlreadyExists = "IBAN_ALREADY_EXISTS"
	CodeIBANNotFound      = "IBAN_NOT_FOUND"
)

func errInvalidIBAN() *errs.HTTPError {
	code := CodeIBANInvalid
	return errs.NewBadRequestError("Invalid IBAN number", true, &code, []errs.FieldError{
		{Field: "iban_number", Error: "is not a valid IBAN"},
	})
}

func errDuplicateIBAN() *errs.HTTPError {
	code := CodeIBANAlreadyExists
	return errs.NewBadRequestError("This IBAN number is already registered", true, &code, []errs.FieldError{
		{Field: "iban_number", Error: "already exists"},
	})
}

func errIBANNotFound(id int64) *errs.HTTPError {
	code := CodeIBANNotFound
	return errs.NewNotFoundError(fmt.Sprintf("IBAN %d not found", id), true, &code)
}

// IBANService holds the business rules of IBAN records.
type IBANService struct {
	store repository.IBANStore
	now   func() time.Time
}

// NewIBANService builds the service. now is the clock used for timestamps;
// nil means time.Now.
func NewIBANService(store repository.IBANStore, now func() time.Time) *IBANService {
	if now == nil {
		now = time.Now
	}
	return &IBANService{store: store, now: now}
}

func (s *IBANService) List(ctx context.Context, payload *iban.ListIBANsPayload) ([]iban.IBAN, error) {
	records, err := s.store.List(ctx, iban.ListFilter{Search: payload.Search})
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}

func (s *IBANService) Create(ctx context.Context, payload *iban.CreateIBANPayload) (*iban.IBAN, error) {
	if err := validation.Check(payload); err != nil {
		return nil, err
	}

	number := libiban.Normalize(payload.IBANNumber)
	if !libiban.IsValid(number) {
		return nil, errInvalidIBAN()
	}

	now := s.now().UTC()
	record := &iban.IBAN{
		Number:        number,
		BankName:      payload.BankName,
		AccountHolder: payload.AccountHolder,
		Description:   payload.Description,
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	err := s.store.InTx(ctx, func(ctx context.Context, store repository.IBANStore) error {
		taken, err := store.NumberTaken(ctx, number, 0)
		if err != nil {
			return err
		}
		if taken {
			return errDuplicateIBAN()
		}
		return store.Create(ctx, record)
	})
	if err != nil {
		return nil, storeError(err)
	}

	zerolog.Ctx(ctx).Info().
		Int64("iban_id", record.ID).
		Str("country", libiban.CountryCode(number)).
		Msg("iban created")

	return record, nil
}

func (s *IBANService) Get(ctx context.Context, id int64) (*iban.IBAN, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, id)
	}
	return record, nil
}

func (s *IBANService) Update(ctx context.Context, payload *iban.UpdateIBANPayload) (*iban.IBAN, error) {
	if err := validation.Check(payload); err != nil {
		return nil, err
	}

	var number string
	if payload.IBANNumber != nil {
		number = libiban.Normalize(*payload.IBANNumber)
		if !libiban.IsValid(number) {
			return nil, errInvalidIBAN()
		}
	}

	var updated *iban.IBAN
	err := s.store.InTx(ctx, func(ctx context.Context, store repository.IBANStore) error {
		record, err := store.GetByID(ctx, payload.ID)
		if err != nil {
			return lookupError(err, payload.ID)
		}

		if payload.IBANNumber != nil && number != record.Number {
			taken, err := store.NumberTaken(ctx, number, record.ID)
			if err != nil {
				return err
			}
			if taken {
				return errDuplicateIBAN()
			}
			record.Number = number
		}
		if payload.BankName != nil {
			record.BankName = *payload.BankName
		}
		if payload.AccountHolder != nil {
			record.AccountHolder = *payload.AccountHolder
		}
		if payload.Description != nil {
			record.Description = *payload.Description
		}
		record.UpdatedAt = s.now().UTC()

		if err := store.Update(ctx, record); err != nil {
			return err
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	zerolog.Ctx(ctx).Info().Int64("iban_id", updated.ID).Msg("iban updated")

	return updated, nil
}

func (s *IBANService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context, store repository.IBANStore) error {
		if _, err := store.GetByID(ctx, id); err != nil {
			return lookupError(err, id)
		}
		return store.Delete(ctx, id)
	})
	if err != nil {
		return storeError(err)
	}

	zerolog.Ctx(ctx).Info().Int64("iban_id", id).Msg("iban deleted")

	return nil
}

// Validate checks a raw number without touching storage.
func (s *IBANService) Validate(payload *iban.ValidateIBANPayload) (*iban.ValidationResult, error) {
	if err := validation.Check(payload); err != nil {
		return nil, err
	}

	res := libiban.Check(payload.IBANNumber)
	return &iban.ValidationResult{
		IsValid:       res.IsValid,
		FormattedIBAN: res.Formatted,
	}, nil
}

// lookupError maps a missing record onto the IBAN specific 404.
func lookupError(err error, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errIBANNotFound(id).WithCause(err)
	}
	return err
}

// storeError converts whatever a store call returned into an HTTP error.
// A unique violation means a concurrent insert won the race past the
// pre-check, so it is reported like any other duplicate.
func storeError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	if sqlerr.IsUniqueViolation(err) {
		return errDuplicateIBAN().WithCause(err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		code := CodeIBANNotFound
		return errs.NewNotFoundError("IBAN not found", true, &code).WithCause(err)
	}
	return sqlerr.HandleError(err)
}
