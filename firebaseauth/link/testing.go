package link

import (
	"context"
	"strconv"
	"sync"
)

// TestUserStore is an in-memory UserStore for tests.  It is concurrently
// safe.
type TestUserStore struct {
	mu      sync.Mutex
	nextUID int
	fields  map[string]map[string]string
	byEmail map[string]string
}

var _ UserStore = (*TestUserStore)(nil)

// NewTestUserStore creates an empty TestUserStore.
func NewTestUserStore() *TestUserStore {
	return &TestUserStore{
		fields:  map[string]map[string]string{},
		byEmail: map[string]string{},
	}
}

// Create implements UserStore with sequential numeric uids.
func (s *TestUserStore) Create(ctx context.Context, a NewAccount) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUID++
	uid := strconv.Itoa(s.nextUID)
	s.fields[uid] = map[string]string{
		"username": a.Username,
		"email":    a.Email,
		"fullname": a.Name,
	}
	if a.Email != "" {
		s.byEmail[NormalizeEmail(a.Email)] = uid
	}
	return uid, nil
}

// SetField implements UserStore.
func (s *TestUserStore) SetField(ctx context.Context, uid, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields[uid] == nil {
		s.fields[uid] = map[string]string{}
	}
	s.fields[uid][field] = value
	return nil
}

// GetField implements UserStore.
func (s *TestUserStore) GetField(ctx context.Context, uid, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.fields[uid][field]
	return v, ok, nil
}

// FindIDByEmail implements UserStore.
func (s *TestUserStore) FindIDByEmail(ctx context.Context, email string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.byEmail[NormalizeEmail(email)]
	return uid, ok, nil
}

// Count returns the number of accounts in the store.
func (s *TestUserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fields)
}

// TestLinkStore is an in-memory LinkStore for tests.  It is concurrently
// safe.
type TestLinkStore struct {
	mu    sync.Mutex
	links map[string]string
}

var _ LinkStore = (*TestLinkStore)(nil)

// NewTestLinkStore creates an empty TestLinkStore.
func NewTestLinkStore() *TestLinkStore {
	return &TestLinkStore{links: map[string]string{}}
}

// Get implements LinkStore.
func (s *TestLinkStore) Get(ctx context.Context, externalID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.links[externalID]
	return uid, ok, nil
}

// SetIfAbsent implements LinkStore.
func (s *TestLinkStore) SetIfAbsent(ctx context.Context, externalID, uid string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.links[externalID]; ok {
		return existing, false, nil
	}
	s.links[externalID] = uid
	return uid, true, nil
}

// Set implements LinkStore.
func (s *TestLinkStore) Set(ctx context.Context, externalID, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[externalID] = uid
	return nil
}

// Delete implements LinkStore.
func (s *TestLinkStore) Delete(ctx context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, externalID)
	return nil
}

// Count returns the number of links in the store.
func (s *TestLinkStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// StaticSettings is a SettingsSource returning a fixed policy.  Tests may
// swap the policy between the legs of a login via SetPolicy.
type StaticSettings struct {
	mu sync.Mutex
	p  Policy
}

var _ SettingsSource = (*StaticSettings)(nil)

// NewStaticSettings creates a StaticSettings with the given policy.
func NewStaticSettings(p Policy) *StaticSettings {
	return &StaticSettings{p: p}
}

// Policy implements SettingsSource.
func (s *StaticSettings) Policy(ctx context.Context) (Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, nil
}

// SetPolicy replaces the returned policy.
func (s *StaticSettings) SetPolicy(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = p
}
