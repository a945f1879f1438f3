package storage

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUserExists is returned when signing up an email that is already taken.
	ErrUserExists = errors.New("storage: user already exists")
	// ErrUserNotFound is returned for lookups of unknown emails.
	ErrUserNotFound = errors.New("storage: user not found")
)

// AccountStore keeps user accounts in memory, keyed by email.
type AccountStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewAccountStore() *AccountStore {
	return &AccountStore{users: make(map[string]*User)}
}

func (s *AccountStore) CreateUser(user User) error {
	if user.Email == "" {
		return fmt.Errorf("creating user: empty email")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return fmt.Errorf("creating user %s: %w", user.Email, ErrUserExists)
	}
	u := user
	u.Preferences = append([]string(nil), user.Preferences...)
	s.users[user.Email] = &u
	return nil
}

// GetUser returns a copy of the account so callers cannot mutate the store.
func (s *AccountStore) GetUser(email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return User{}, fmt.Errorf("getting user %s: %w", email, ErrUserNotFound)
	}
	out := *u
	out.Preferences = append([]string(nil), u.Preferences...)
	return out, nil
}

func (s *AccountStore) UpdatePreferences(email string, preferences []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return fmt.Errorf("updating preferences for %s: %w", email, ErrUserNotFound)
	}
	u.Preferences = append([]string(nil), preferences...)
	return nil
}

func (s *AccountStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
