package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create an account with an existing email
	ErrDuplicateEmail = errors.New("account with this email already exists")

	// ErrDuplicateIdentity is returned when trying to link an already-linked provider identity
	ErrDuplicateIdentity = errors.New("provider identity is already linked")

	// ErrProviderAlreadyLinked is returned when the account already has a
	// different identity from the same provider
	ErrProviderAlreadyLinked = errors.New("account already has an identity from this provider")

	// ErrDuplicateCredential is returned when a credential slot is already taken
	ErrDuplicateCredential = errors.New("credential for this provider already exists")
)
