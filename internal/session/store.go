package session

import (
	"context"
	"fmt"
	"sync"
)

// Kind names one of the two credential pairs.
type Kind string

const (
	KindSystem Kind = "system"
	KindUser   Kind = "user"
)

// Pair is one session credential.
type Pair struct {
	SessionID         string `json:"session_id"`
	SessionIdentifier string `json:"session_identifier"`
}

// Valid reports whether both halves are present.
func (p Pair) Valid() bool { return p.SessionID != "" && p.SessionIdentifier != "" }

// CredentialRepository persists both pairs per device.
type CredentialRepository interface {
	LoadPairs(ctx context.Context, deviceID string) (map[Kind]Pair, error)
	SavePair(ctx context.Context, deviceID string, kind Kind, pair Pair) error
	DeletePair(ctx context.Context, deviceID string, kind Kind) error
}

// Store holds a device's system and user pairs. The system pair is only ever
// written by SetSystem; login and logout touch the user pair alone.
type Store struct {
	mu       sync.RWMutex
	deviceID string
	repo     CredentialRepository
	system   *Pair
	user     *Pair

	listeners []func()
}

// NewStore creates an empty store for deviceID. repo may be nil.
func NewStore(deviceID string, repo CredentialRepository) *Store {
	return &Store{deviceID: deviceID, repo: repo}
}

// DeviceID returns the owning device.
func (s *Store) DeviceID() string { return s.deviceID }

// Restore loads persisted pairs. It must run before any authenticated call.
func (s *Store) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	pairs, err := s.repo.LoadPairs(ctx, s.deviceID)
	if err != nil {
		return fmt.Errorf("failed to restore credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := pairs[KindSystem]; ok && p.Valid() {
		s.system = &p
	}
	if p, ok := pairs[KindUser]; ok && p.Valid() {
		s.user = &p
	}
	return nil
}

// System returns the system pair.
func (s *Store) System() (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.system == nil {
		return Pair{}, false
	}
	return *s.system, true
}

// User returns the user pair.
func (s *Store) User() (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return Pair{}, false
	}
	return *s.user, true
}

// Authenticated reports whether a user pair is present.
func (s *Store) Authenticated() bool {
	_, ok := s.User()
	return ok
}

// SetSystem stores the system pair obtained from operator authorization.
func (s *Store) SetSystem(ctx context.Context, p Pair) error {
	if !p.Valid() {
		return fmt.Errorf("invalid system session pair")
	}
	s.mu.Lock()
	s.system = &p
	s.mu.Unlock()
	return s.save(ctx, KindSystem, p)
}

// SetUser stores the user pair after phone verification and notifies
// OnAuthenticated listeners.
func (s *Store) SetUser(ctx context.Context, p Pair) error {
	if !p.Valid() {
		return fmt.Errorf("invalid user session pair")
	}
	s.mu.Lock()
	s.user = &p
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	err := s.save(ctx, KindUser, p)
	for _, fn := range listeners {
		fn()
	}
	return err
}

// ClearUser drops the user pair. The system pair is untouched.
func (s *Store) ClearUser(ctx context.Context) error {
	s.mu.Lock()
	had := s.user != nil
	s.user = nil
	s.mu.Unlock()

	if !had || s.repo == nil {
		return nil
	}
	return s.repo.DeletePair(ctx, s.deviceID, KindUser)
}

// OnAuthenticated registers fn to run after every successful SetUser.
func (s *Store) OnAuthenticated(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) save(ctx context.Context, kind Kind, p Pair) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SavePair(ctx, s.deviceID, kind, p); err != nil {
		return fmt.Errorf("failed to persist %s session: %w", kind, err)
	}
	return nil
}
