package handler

import (
	"github.com/deppfellow/iban-manager/internal/server"
	"github.com/deppfellow/iban-manager/internal/service"
)

// Handlers groups every HTTP handler so the router receives one object.
type Handlers struct {
	Health *HealthHandler
	IBAN   *IBANHandler
	Static *StaticHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(s),
		IBAN:   NewIBANHandler(s, services.IBAN),
		Static: NewStaticHandler(s),
	}
}
