package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/iban-manager/internal/errs"
	"github.com/labstack/echo/v4"
)

type createPayload struct {
	IBANNumber string  `json:"iban_number" validate:"required,max=64"`
	BankName   string  `json:"bank_name" validate:"required,notblank,max=100"`
	Note       *string `json:"note" validate:"omitnil,notblank"`
}

func (p *createPayload) Validate() error { return Struct(p) }

type idPayload struct {
	ID int64 `param:"id" validate:"gt=0"`
}

func (p *idPayload) Validate() error { return Struct(p) }

func newContext(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asHTTPError(t *testing.T, err error) *errs.HTTPError {
	t.Helper()
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *errs.HTTPError, got %T (%v)", err, err)
	}
	return httpErr
}

func TestBindAndValidateOK(t *testing.T) {
	c, _ := newContext(http.MethodPost, `{"iban_number":"DE89 3704 0044 0532 0130 00","bank_name":"Commerzbank"}`)

	var p createPayload
	if err := BindAndValidate(c, &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BankName != "Commerzbank" {
		t.Errorf("bank name = %q", p.BankName)
	}
}

func TestBindAndValidateReportsWireFieldNames(t *testing.T) {
	c, _ := newContext(http.MethodPost, `{"bank_name":"   "}`)

	httpErr := asHTTPError(t, BindAndValidate(c, &createPayload{}))
	if httpErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", httpErr.Status)
	}

	got := map[string]string{}
	for _, fe := range httpErr.Errors {
		got[fe.Field] = fe.Error
	}
	if got["iban_number"] != "is required" {
		t.Errorf("iban_number error = %q", got["iban_number"])
	}
	if got["bank_name"] != "must not be blank" {
		t.Errorf("bank_name error = %q", got["bank_name"])
	}
}

func TestBindAndValidateOptionalPointer(t *testing.T) {
	c, _ := newContext(http.MethodPost, `{"iban_number":"x","bank_name":"b","note":""}`)

	httpErr := asHTTPError(t, BindAndValidate(c, &createPayload{}))
	if len(httpErr.Errors) != 1 || httpErr.Errors[0].Field != "note" {
		t.Errorf("errors = %+v", httpErr.Errors)
	}
}

func TestBindAndValidateMalformedJSON(t *testing.T) {
	c, _ := newContext(http.MethodPost, `{"iban_number":`)

	httpErr := asHTTPError(t, BindAndValidate(c, &createPayload{}))
	if httpErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", httpErr.Status)
	}
	if strings.Contains(httpErr.Message, "offset") {
		t.Errorf("decoder details leaked: %q", httpErr.Message)
	}
}

func TestBindAndValidatePathParam(t *testing.T) {
	c, _ := newContext(http.MethodGet, "")
	c.SetParamNames("id")

	c.SetParamValues("abc")
	if httpErr := asHTTPError(t, BindAndValidate(c, &idPayload{})); httpErr.Status != http.StatusBadRequest {
		t.Errorf("non numeric id status = %d", httpErr.Status)
	}

	c.SetParamValues("0")
	if httpErr := asHTTPError(t, BindAndValidate(c, &idPayload{})); httpErr.Errors[0].Field != "id" {
		t.Errorf("errors = %+v", httpErr.Errors)
	}

	c.SetParamValues("42")
	var p idPayload
	if err := BindAndValidate(c, &p); err != nil || p.ID != 42 {
		t.Errorf("got id %d, err %v", p.ID, err)
	}
}

func TestCustomValidationErrors(t *testing.T) {
	msg, fields := extractValidationError(CustomValidationErrors{{Field: "iban_number", Message: "is invalid"}})
	if msg != "Validation failed" || len(fields) != 1 || fields[0].Error != "is invalid" {
		t.Fatalf("got %q %+v", msg, fields)
	}
}
