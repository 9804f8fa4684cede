// Package storage provides the repository interfaces and implementations
// backing the request pipeline: project definitions, account quota records,
// and stored submissions.
package storage

import (
	"context"
	"errors"

	"github.com/mockstack/mockstack/pkg/mockapi"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ProjectStore holds the mock API definitions the resolver scans.
type ProjectStore interface {
	// List returns all projects in registration order.
	List(ctx context.Context) ([]*mockapi.Project, error)

	// Get retrieves a project by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*mockapi.Project, error)

	// Put stores or replaces a project definition.
	Put(ctx context.Context, p *mockapi.Project) error
}

// AccountStore holds the per-account quota documents. The quota enforcer
// serializes read-modify-write cycles per account on top of this interface,
// so implementations only need to be individually thread-safe.
type AccountStore interface {
	// Get retrieves an account by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*mockapi.Account, error)

	// Save stores or replaces an account record.
	Save(ctx context.Context, a *mockapi.Account) error
}

// SubmissionStore persists the records created by POST-style endpoints.
// Submissions are immutable: there is no update operation.
type SubmissionStore interface {
	// Create appends one submission.
	Create(ctx context.Context, s *mockapi.Submission) error

	// ListByEndpoint returns all submissions for an endpoint in creation
	// order.
	ListByEndpoint(ctx context.Context, projectID, endpointID string) ([]*mockapi.Submission, error)
}
