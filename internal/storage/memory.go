package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/mockstack/mockstack/pkg/mockapi"
)

// MemoryProjectStore is a thread-safe in-memory ProjectStore.
type MemoryProjectStore struct {
	mu       sync.RWMutex
	projects []*mockapi.Project
	byID     map[string]*mockapi.Project
}

// NewMemoryProjectStore creates an empty MemoryProjectStore.
func NewMemoryProjectStore() *MemoryProjectStore {
	return &MemoryProjectStore{byID: make(map[string]*mockapi.Project)}
}

// List returns all projects in registration order.
func (s *MemoryProjectStore) List(_ context.Context) ([]*mockapi.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*mockapi.Project, len(s.projects))
	copy(out, s.projects)
	return out, nil
}

// Get retrieves a project by ID.
func (s *MemoryProjectStore) Get(_ context.Context, id string) (*mockapi.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// Put stores or replaces a project definition.
func (s *MemoryProjectStore) Put(_ context.Context, p *mockapi.Project) error {
	if p == nil {
		return fmt.Errorf("project cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[p.ID]; exists {
		for i := range s.projects {
			if s.projects[i].ID == p.ID {
				s.projects[i] = p
				break
			}
		}
	} else {
		s.projects = append(s.projects, p)
	}
	s.byID[p.ID] = p
	return nil
}

// MemoryAccountStore is a thread-safe in-memory AccountStore. Accounts are
// cloned on the way in and out so callers never share the counter maps.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*mockapi.Account
}

// NewMemoryAccountStore creates an empty MemoryAccountStore.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]*mockapi.Account)}
}

// Get retrieves a copy of an account by ID.
func (s *MemoryAccountStore) Get(_ context.Context, id string) (*mockapi.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", id, ErrNotFound)
	}
	return a.Clone(), nil
}

// Save stores a copy of the account record.
func (s *MemoryAccountStore) Save(_ context.Context, a *mockapi.Account) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("account must have an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a.Clone()
	return nil
}

// MemorySubmissionStore is a thread-safe in-memory SubmissionStore keeping
// submissions in creation order per endpoint.
type MemorySubmissionStore struct {
	mu   sync.RWMutex
	byEP map[string][]*mockapi.Submission
}

// NewMemorySubmissionStore creates an empty MemorySubmissionStore.
func NewMemorySubmissionStore() *MemorySubmissionStore {
	return &MemorySubmissionStore{byEP: make(map[string][]*mockapi.Submission)}
}

func submissionKey(projectID, endpointID string) string {
	return projectID + "/" + endpointID
}

// Create appends one submission.
func (s *MemorySubmissionStore) Create(_ context.Context, sub *mockapi.Submission) error {
	if sub == nil || sub.ID == "" {
		return fmt.Errorf("submission must have an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := submissionKey(sub.ProjectID, sub.EndpointID)
	s.byEP[key] = append(s.byEP[key], sub)
	return nil
}

// ListByEndpoint returns all submissions for an endpoint in creation order.
func (s *MemorySubmissionStore) ListByEndpoint(_ context.Context, projectID, endpointID string) ([]*mockapi.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := s.byEP[submissionKey(projectID, endpointID)]
	out := make([]*mockapi.Submission, len(subs))
	copy(out, subs)
	return out, nil
}
