// Package credstore is the client boundary to the remote credential store.
// The pipeline never assumes exclusive ownership of anything behind this
// interface: other issuers write credentials for the same wallets, so all
// correctness downstream relies on idempotency keys and read-compare-write,
// never on locking the store.
package credstore

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when a wallet has no associated store identity.
// During issuance this is retryable (the identity may not have propagated
// yet); during aggregation it signals a data inconsistency.
var ErrUserNotFound = errors.New("credstore: user not found")

// ErrNotFound is returned for lookups of credentials that do not exist.
var ErrNotFound = errors.New("credstore: credential not found")

// User is the store-internal identity a wallet resolves to.
type User struct {
	ID        string `json:"id"`
	GatewayID string `json:"gatewayId"`
}

// Credential is the externally owned data record representing a claim about a
// wallet's activity. Claim is an opaque structured payload.
type Credential struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	DataModelID string         `json:"dataModelId"`
	Claim       map[string]any `json:"claim"`
	Tags        []string       `json:"tags"`
}

// CreateCredentialInput carries everything needed to issue a credential.
type CreateCredentialInput struct {
	Recipient   string // wallet address, checksummed
	Title       string
	Description string
	Image       string
	DataModelID string
	Claim       map[string]any
	Tags        []string
	OrgID       string
	Expiration  *time.Time
}

// UpdateCredentialInput replaces a credential's claim and, optionally, its
// display fields. Empty display fields are left untouched.
type UpdateCredentialInput struct {
	ID          string
	Claim       map[string]any
	Title       string
	Description string
	Image       string
}

// Store is the set of remote operations the pipeline consumes. Every call is
// a network round trip that may fail transiently.
type Store interface {
	// UserByWallet resolves a wallet address to its store identity,
	// returning ErrUserNotFound when none exists.
	UserByWallet(ctx context.Context, wallet string) (*User, error)
	// EarnedCredentials returns the user's credentials scoped to the given
	// data models, at most limit of them.
	EarnedCredentials(ctx context.Context, userID string, dataModelIDs []string, limit int) ([]Credential, error)
	CreateCredential(ctx context.Context, input CreateCredentialInput) (*Credential, error)
	UpdateCredential(ctx context.Context, input UpdateCredentialInput) (*Credential, error)
}
