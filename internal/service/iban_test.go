package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/deppfellow/iban-manager/internal/errs"
	"github.com/deppfellow/iban-manager/internal/model/iban"
	"github.com/deppfellow/iban-manager/internal/repository"
	"github.com/deppfellow/iban-manager/internal/testutil"
)

// fakeClock advances one minute per reading.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newService(t *testing.T) *IBANService {
	t.Helper()
	cfg := testutil.Config(t)
	db := testutil.NewDB(t, cfg)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewIBANService(repository.NewIBANRepository(db.DB), clock.Now)
}

func strPtr(s string) *string { return &s }

func requireHTTPError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *errs.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Status != status {
		t.Errorf("status = %d, want %d", httpErr.Status, status)
	}
	if code != "" && httpErr.Code != code {
		t.Errorf("code = %q, want %q", httpErr.Code, code)
	}
}

func createPayload(number string) *iban.CreateIBANPayload {
	return &iban.CreateIBANPayload{
		IBANNumber:    number,
		BankName:      "Ziraat",
		AccountHolder: "Ayse Yilmaz",
	}
}

func TestCreateNormalizesNumber(t *testing.T) {
	svc := newService(t)

	rec, err := svc.Create(context.Background(), createPayload("tr33 0006 1005 1978 6457 8413 26"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Number != "TR330006100519786457841326" {
		t.Errorf("number = %q, want normalized", rec.Number)
	}
	if rec.ID == 0 || rec.CreatedAt.IsZero() || !rec.CreatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Description != "" {
		t.Errorf("description = %q, want empty", rec.Description)
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	svc := newService(t)

	p := createPayload("DE89370400440532013000")
	p.BankName = ""
	_, err := svc.Create(context.Background(), p)
	requireHTTPError(t, err, http.StatusBadRequest, "BAD_REQUEST")
}

func TestCreateRejectsInvalidChecksum(t *testing.T) {
	svc := newService(t)

	_, err := svc.Create(context.Background(), createPayload("DE89370400440532013001"))
	requireHTTPError(t, err, http.StatusBadRequest, CodeIBANInvalid)
}

func TestCreateRejectsDuplicateAcrossSpacingAndCase(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, createPayload("GB82WEST12345698765432")); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err := svc.Create(ctx, createPayload("gb82 west 1234 5698 7654 32"))
	requireHTTPError(t, err, http.StatusBadRequest, CodeIBANAlreadyExists)

	list, err := svc.List(ctx, &iban.ListIBANsPayload{})
	if err != nil || len(list) != 1 {
		t.Fatalf("expected exactly one record, got %d (%v)", len(list), err)
	}
}

func TestGetMissing(t *testing.T) {
	svc := newService(t)

	_, err := svc.Get(context.Background(), 42)
	requireHTTPError(t, err, http.StatusNotFound, CodeIBANNotFound)
}

func TestUpdateBankNameOnly(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, createPayload("DE89370400440532013000"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, &iban.UpdateIBANPayload{ID: created.ID, BankName: strPtr("Deutsche Bank")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.BankName != "Deutsche Bank" {
		t.Errorf("bank name = %q", updated.BankName)
	}
	if updated.Number != created.Number || updated.AccountHolder != created.AccountHolder || updated.Description != created.Description {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("updated_at %s did not advance past %s", updated.UpdatedAt, created.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at changed to %s", updated.CreatedAt)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil || got.BankName != "Deutsche Bank" {
		t.Fatalf("persisted record = %+v, %v", got, err)
	}
}

func TestUpdateNumber(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, _ := svc.Create(ctx, createPayload("DE89370400440532013000"))
	second, _ := svc.Create(ctx, createPayload("NO9386011117947"))

	_, err := svc.Update(ctx, &iban.UpdateIBANPayload{ID: second.ID, IBANNumber: strPtr("de89 3704 0044 0532 0130 00")})
	requireHTTPError(t, err, http.StatusBadRequest, CodeIBANAlreadyExists)

	_, err = svc.Update(ctx, &iban.UpdateIBANPayload{ID: second.ID, IBANNumber: strPtr("NO9386011117948")})
	requireHTTPError(t, err, http.StatusBadRequest, CodeIBANInvalid)

	// Re-submitting a record's own number is not a conflict.
	if _, err := svc.Update(ctx, &iban.UpdateIBANPayload{ID: first.ID, IBANNumber: strPtr("DE89 3704 0044 0532 0130 00")}); err != nil {
		t.Fatalf("self update: %v", err)
	}

	updated, err := svc.Update(ctx, &iban.UpdateIBANPayload{ID: second.ID, IBANNumber: strPtr("gb82 west 1234 5698 7654 32")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Number != "GB82WEST12345698765432" {
		t.Errorf("number = %q", updated.Number)
	}
}

func TestUpdateRejectsBlankName(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, createPayload("DE89370400440532013000"))

	_, err := svc.Update(ctx, &iban.UpdateIBANPayload{ID: created.ID, AccountHolder: strPtr("")})
	requireHTTPError(t, err, http.StatusBadRequest, "")
}

func TestUpdateMissing(t *testing.T) {
	svc := newService(t)

	_, err := svc.Update(context.Background(), &iban.UpdateIBANPayload{ID: 7, BankName: strPtr("x")})
	requireHTTPError(t, err, http.StatusNotFound, CodeIBANNotFound)
}

func TestDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, createPayload("DE89370400440532013000"))

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err := svc.Get(ctx, created.ID)
	requireHTTPError(t, err, http.StatusNotFound, CodeIBANNotFound)

	err = svc.Delete(ctx, created.ID)
	requireHTTPError(t, err, http.StatusNotFound, CodeIBANNotFound)
}

func TestListNewestFirst(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, createPayload("DE89370400440532013000"))
	b, _ := svc.Create(ctx, createPayload("NO9386011117947"))

	list, err := svc.List(ctx, &iban.ListIBANsPayload{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestValidate(t *testing.T) {
	svc := newService(t)

	res, err := svc.Validate(&iban.ValidateIBANPayload{IBANNumber: "de89370400440532013000"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.IsValid || res.FormattedIBAN == nil || *res.FormattedIBAN != "DE89 3704 0044 0532 0130 00" {
		t.Errorf("got %+v", res)
	}

	res, err = svc.Validate(&iban.ValidateIBANPayload{IBANNumber: "DE00"})
	if err != nil || res.IsValid || res.FormattedIBAN != nil {
		t.Errorf("got %+v, %v", res, err)
	}

	_, err = svc.Validate(&iban.ValidateIBANPayload{})
	requireHTTPError(t, err, http.StatusBadRequest, "BAD_REQUEST")
}
