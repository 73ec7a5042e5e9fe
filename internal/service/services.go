package service

import (
	"time"

	"github.com/deppfellow/iban-manager/internal/repository"
	"github.com/deppfellow/iban-manager/internal/server"
)

type Services struct {
	IBAN *IBANService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	return &Services{
		IBAN: NewIBANService(repos.IBAN, time.Now),
	}, nil
}
