package handler

import (
	"github.com/deppfellow/iban-manager/internal/model/iban"
	"github.com/deppfellow/iban-manager/internal/server"
	"github.com/deppfellow/iban-manager/internal/service"
	"github.com/labstack/echo/v4"
)

type IBANHandler struct {
	Handler
	ibanService *service.IBANService
}

func NewIBANHandler(s *server.Server, ibanService *service.IBANService) *IBANHandler {
	return &IBANHandler{
		Handler:     NewHandler(s),
		ibanService: ibanService,
	}
}

func (h *IBANHandler) ListIBANs(c echo.Context, payload *iban.ListIBANsPayload) ([]iban.IBAN, error) {
	return h.ibanService.List(c.Request().Context(), payload)
}

func (h *IBANHandler) CreateIBAN(c echo.Context, payload *iban.CreateIBANPayload) (*iban.IBAN, error) {
	return h.ibanService.Create(c.Request().Context(), payload)
}

func (h *IBANHandler) GetIBAN(c echo.Context, payload *iban.GetIBANPayload) (*iban.IBAN, error) {
	return h.ibanService.Get(c.Request().Context(), payload.ID)
}

func (h *IBANHandler) UpdateIBAN(c echo.Context, payload *iban.UpdateIBANPayload) (*iban.IBAN, error) {
	return h.ibanService.Update(c.Request().Context(), payload)
}

func (h *IBANHandler) DeleteIBAN(c echo.Context, payload *iban.DeleteIBANPayload) error {
	return h.ibanService.Delete(c.Request().Context(), payload.ID)
}

// ValidateIBAN checks a number without storing it. An invalid number is a
// successful response with is_valid false.
func (h *IBANHandler) ValidateIBAN(c echo.Context, payload *iban.ValidateIBANPayload) (*iban.ValidationResult, error) {
	return h.ibanService.Validate(payload)
}
