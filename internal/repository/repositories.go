package repository

import (
	"github.com/deppfellow/iban-manager/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	IBAN *IBANRepository
}

// NewRepositories builds every repository on the server's database.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		IBAN: NewIBANRepository(s.DB.DB),
	}
}
