package credstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local development. It
// mirrors the remote store's observable behaviour closely enough to exercise
// the dedupe and compare-before-write paths, and counts write calls so tests
// can assert that no needless writes happen.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]User         // wallet -> user
	owned   map[string][]Credential // user id -> credentials
	nextID  int
	creates int
	updates int

	// FailUserLookup, when set, makes UserByWallet return the given error
	// to exercise retry paths.
	FailUserLookup error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]User),
		owned: make(map[string][]Credential),
	}
}

// AddUser registers a wallet -> user identity mapping.
func (m *MemoryStore) AddUser(wallet, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[wallet] = User{ID: userID, GatewayID: userID}
}

// SeedCredential attaches an existing credential to a user, bypassing the
// create path (and its counter).
func (m *MemoryStore) SeedCredential(userID string, credential Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if credential.ID == "" {
		m.nextID++
		credential.ID = fmt.Sprintf("cred-%d", m.nextID)
	}
	m.owned[userID] = append(m.owned[userID], credential)
}

// CreateCalls reports how many CreateCredential calls have been made.
func (m *MemoryStore) CreateCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creates
}

// UpdateCalls reports how many UpdateCredential calls have been made.
func (m *MemoryStore) UpdateCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updates
}

// UserByWallet implements Store.
func (m *MemoryStore) UserByWallet(_ context.Context, wallet string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailUserLookup != nil {
		return nil, m.FailUserLookup
	}
	user, ok := m.users[wallet]
	if !ok {
		return nil, fmt.Errorf("wallet %s: %w", wallet, ErrUserNotFound)
	}
	return &user, nil
}

// EarnedCredentials implements Store.
func (m *MemoryStore) EarnedCredentials(_ context.Context, userID string, dataModelIDs []string, limit int) ([]Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	wanted := make(map[string]struct{}, len(dataModelIDs))
	for _, id := range dataModelIDs {
		wanted[id] = struct{}{}
	}
	var matched []Credential
	for _, credential := range m.owned[userID] {
		if _, ok := wanted[credential.DataModelID]; !ok {
			continue
		}
		matched = append(matched, credential)
		if len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

// CreateCredential implements Store.
func (m *MemoryStore) CreateCredential(_ context.Context, input CreateCredentialInput) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	user, ok := m.users[input.Recipient]
	if !ok {
		return nil, fmt.Errorf("recipient %s: %w", input.Recipient, ErrUserNotFound)
	}
	m.nextID++
	credential := Credential{
		ID:          fmt.Sprintf("cred-%d", m.nextID),
		Title:       input.Title,
		Description: input.Description,
		DataModelID: input.DataModelID,
		Claim:       input.Claim,
		Tags:        input.Tags,
	}
	m.owned[user.ID] = append(m.owned[user.ID], credential)
	return &credential, nil
}

// UpdateCredential implements Store.
func (m *MemoryStore) UpdateCredential(_ context.Context, input UpdateCredentialInput) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	for userID, credentials := range m.owned {
		for i, credential := range credentials {
			if credential.ID != input.ID {
				continue
			}
			credential.Claim = input.Claim
			if input.Title != "" {
				credential.Title = input.Title
			}
			if input.Description != "" {
				credential.Description = input.Description
			}
			m.owned[userID][i] = credential
			return &credential, nil
		}
	}
	return nil, fmt.Errorf("credential %s: %w", input.ID, ErrNotFound)
}

var _ Store = (*MemoryStore)(nil)
