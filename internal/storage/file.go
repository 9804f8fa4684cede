package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mockstack/mockstack/pkg/mockapi"
)

// FileStore persists submissions and account ledgers to a single JSON file,
// layered over the in-memory stores. Every write flushes the full snapshot
// with an atomic rename, which is sufficient at mock-API traffic volumes and
// keeps recovery trivial: load the file, or start empty if it is absent.
type FileStore struct {
	mu   sync.Mutex
	path string

	accounts    *MemoryAccountStore
	submissions *MemorySubmissionStore
}

type fileSnapshot struct {
	Accounts    []*mockapi.Account    `json:"accounts"`
	Submissions []*mockapi.Submission `json:"submissions"`
}

// OpenFileStore loads (or initializes) a file-backed store at path.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:        path,
		accounts:    NewMemoryAccountStore(),
		submissions: NewMemorySubmissionStore(),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return fs, nil
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", path, err)
	}

	ctx := context.Background()
	for _, a := range snap.Accounts {
		if err := fs.accounts.Save(ctx, a); err != nil {
			return nil, err
		}
	}
	for _, s := range snap.Submissions {
		if err := fs.submissions.Create(ctx, s); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// Accounts returns the account store view, flushing on every save.
func (f *FileStore) Accounts() AccountStore {
	return &fileAccountStore{f}
}

// Submissions returns the submission store view, flushing on every create.
func (f *FileStore) Submissions() SubmissionStore {
	return &fileSubmissionStore{f}
}

// flush writes the current snapshot using a temp file and atomic rename.
func (f *FileStore) flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := fileSnapshot{}

	f.accounts.mu.RLock()
	for _, a := range f.accounts.accounts {
		snap.Accounts = append(snap.Accounts, a.Clone())
	}
	f.accounts.mu.RUnlock()

	f.submissions.mu.RLock()
	for _, subs := range f.submissions.byEP {
		snap.Submissions = append(snap.Submissions, subs...)
	}
	f.submissions.mu.RUnlock()

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close store file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

type fileAccountStore struct{ f *FileStore }

func (s *fileAccountStore) Get(ctx context.Context, id string) (*mockapi.Account, error) {
	return s.f.accounts.Get(ctx, id)
}

func (s *fileAccountStore) Save(ctx context.Context, a *mockapi.Account) error {
	if err := s.f.accounts.Save(ctx, a); err != nil {
		return err
	}
	return s.f.flush()
}

type fileSubmissionStore struct{ f *FileStore }

func (s *fileSubmissionStore) Create(ctx context.Context, sub *mockapi.Submission) error {
	if err := s.f.submissions.Create(ctx, sub); err != nil {
		return err
	}
	return s.f.flush()
}

func (s *fileSubmissionStore) ListByEndpoint(ctx context.Context, projectID, endpointID string) ([]*mockapi.Submission, error) {
	return s.f.submissions.ListByEndpoint(ctx, projectID, endpointID)
}
