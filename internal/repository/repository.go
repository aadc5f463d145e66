package repository

import (
	"github.com/prperemyshlev/bridge-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Account    AccountRepository
	Credential CredentialRepository
	Thread     ThreadRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Account:    NewAccountRepository(db),
		Credential: NewCredentialRepository(db),
		Thread:     NewThreadRepository(db),
	}
}
