// Package store persists intent and user records keyed by account email.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/samba-xyz/samba-relay/pkg/models"
)

// ErrNotFound is returned when no record exists for the given key.
var ErrNotFound = errors.New("record not found")

// Store is the persistence interface for intent and user records. Each email
// holds at most one active intent record at a time.
type Store interface {
	GetIntent(ctx context.Context, email string) (*models.IntentRecord, error)
	UpsertIntent(ctx context.Context, record *models.IntentRecord) error
	DeleteIntent(ctx context.Context, email string) error

	GetWrapperContract(ctx context.Context, email string) (string, error)
	SetWrapperContract(ctx context.Context, email, address string) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	intents  map[string]models.IntentRecord
	wrappers map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intents:  make(map[string]models.IntentRecord),
		wrappers: make(map[string]string),
	}
}

func (s *MemoryStore) GetIntent(_ context.Context, email string) (*models.IntentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.intents[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *MemoryStore) UpsertIntent(_ context.Context, record *models.IntentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[record.Email] = *record
	return nil
}

func (s *MemoryStore) DeleteIntent(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.intents, email)
	return nil
}

func (s *MemoryStore) GetWrapperContract(_ context.Context, email string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	address, ok := s.wrappers[email]
	if !ok {
		return "", ErrNotFound
	}
	return address, nil
}

func (s *MemoryStore) SetWrapperContract(_ context.Context, email, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wrappers[email] = address
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close(_ context.Context) error { return nil }
