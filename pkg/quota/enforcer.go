// Package quota enforces per-account usage limits: per-second rate limiting,
// a rolling-24h request cap, and a cumulative storage cap, each tiered by
// account class.
//
// Every check fails open: if the quota store itself errors, the request is
// allowed and a warning is logged. Availability is prioritized over strict
// enforcement for the accounting subsystem, but a declared quota breach
// always blocks.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/mockstack/mockstack/internal/storage"
	"github.com/mockstack/mockstack/pkg/logging"
)

// DailyWindow is the length of the request-count window.
const DailyWindow = 24 * time.Hour

// Kind identifies which quota check produced a decision.
type Kind string

const (
	KindRate    Kind = "rate"
	KindDaily   Kind = "daily"
	KindStorage Kind = "storage"
)

// Decision is the outcome of a single quota check.
type Decision struct {
	// Allowed is true when the request may proceed
	Allowed bool

	// Kind identifies the check that produced this decision
	Kind Kind

	// Message is a human-readable rejection reason
	Message string

	// RetryAfter is the remaining wait for rate rejections
	RetryAfter time.Duration

	// RenewsAt is when the daily window resets (daily rejections)
	RenewsAt time.Time

	// ReadOnly marks storage rejections: the account can still read
	ReadOnly bool
}

// Enforcer runs the tiered quota checks against the account store.
// Read-modify-write cycles on one account are serialized through a per-key
// mutex, so concurrent requests from the same account cannot lose counter
// updates.
type Enforcer struct {
	store storage.AccountStore
	log   *slog.Logger
	locks keyedMutex

	// now is swappable for tests
	now func() time.Time
}

// NewEnforcer creates an Enforcer over the given account store.
func NewEnforcer(store storage.AccountStore) *Enforcer {
	return &Enforcer{
		store: store,
		log:   logging.Nop(),
		now:   time.Now,
	}
}

// SetLogger sets the operational logger used for fail-open warnings.
func (e *Enforcer) SetLogger(log *slog.Logger) {
	if log != nil {
		e.log = log
	}
}

// CheckRate enforces the per-second minimum gap between requests. On allow,
// the account's lastRequestAt is advanced and persisted.
func (e *Enforcer) CheckRate(ctx context.Context, accountID string) Decision {
	unlock := e.locks.lock(accountID)
	defer unlock()

	acct, err := e.store.Get(ctx, accountID)
	if err != nil {
		return e.failOpen(KindRate, accountID, err)
	}

	minGap := time.Second / time.Duration(MaxRequestsPerSecond(acct.Tier))
	now := e.now()

	if !acct.LastRequestAt.IsZero() {
		if elapsed := now.Sub(acct.LastRequestAt); elapsed < minGap {
			wait := minGap - elapsed
			return Decision{
				Kind:       KindRate,
				RetryAfter: wait,
				Message:    fmt.Sprintf("Rate limit exceeded. Try again in %dms.", wait.Milliseconds()),
			}
		}
	}

	acct.LastRequestAt = now
	if err := e.store.Save(ctx, acct); err != nil {
		return e.failOpen(KindRate, accountID, err)
	}
	return Decision{Allowed: true, Kind: KindRate}
}

// CheckDaily enforces the rolling-24h request cap. An expired window is
// reset before counting; on allow, the counter for the current window anchor
// is incremented and persisted.
func (e *Enforcer) CheckDaily(ctx context.Context, accountID string) Decision {
	unlock := e.locks.lock(accountID)
	defer unlock()

	acct, err := e.store.Get(ctx, accountID)
	if err != nil {
		return e.failOpen(KindDaily, accountID, err)
	}

	now := e.now()
	if acct.LastRequestReset.IsZero() || now.Sub(acct.LastRequestReset) >= DailyWindow {
		acct.DailyRequests = make(map[string]int)
		acct.LastRequestReset = now
	}

	key := WindowKey(acct.LastRequestReset)
	count := acct.DailyRequests[key]

	if count >= DailyRequestLimit(acct.Tier) {
		renews := acct.LastRequestReset.Add(DailyWindow)
		return Decision{
			Kind:     KindDaily,
			RenewsAt: renews,
			Message:  fmt.Sprintf("Daily request limit reached. Quota renews at %s.", renews.UTC().Format(time.RFC3339)),
		}
	}

	if acct.DailyRequests == nil {
		acct.DailyRequests = make(map[string]int)
	}
	acct.DailyRequests[key] = count + 1
	if err := e.store.Save(ctx, acct); err != nil {
		return e.failOpen(KindDaily, accountID, err)
	}
	return Decision{Allowed: true, Kind: KindDaily}
}

// CheckStorage verifies that writing incomingBytes would not push the
// account over its storage cap. Write requests over the cap are rejected
// with ReadOnly set; read requests are always allowed, even over cap. This
// check never commits usage itself - that happens after a successful write
// via CommitUsage.
func (e *Enforcer) CheckStorage(ctx context.Context, accountID string, incomingBytes int64, write bool) Decision {
	acct, err := e.store.Get(ctx, accountID)
	if err != nil {
		return e.failOpen(KindStorage, accountID, err)
	}

	limit := StorageLimitBytes(acct.Tier)
	if acct.StorageUsage+incomingBytes > limit {
		if write {
			return Decision{
				Kind:     KindStorage,
				ReadOnly: true,
				Message: fmt.Sprintf("Storage limit exceeded (%d of %d bytes used). Delete data or upgrade to continue writing.",
					acct.StorageUsage, limit),
			}
		}
		// Reads remain available when storage is full
	}
	return Decision{Allowed: true, Kind: KindStorage}
}

// CommitUsage adds bytes to the account's storage ledger. Called by the
// persistence path after a successful write; errors are the caller's to log,
// not to fail the request on.
func (e *Enforcer) CommitUsage(ctx context.Context, accountID string, bytes int64) error {
	unlock := e.locks.lock(accountID)
	defer unlock()

	acct, err := e.store.Get(ctx, accountID)
	if err != nil {
		return err
	}
	acct.StorageUsage += bytes
	return e.store.Save(ctx, acct)
}

// failOpen logs a quota-store error and allows the request.
func (e *Enforcer) failOpen(kind Kind, accountID string, err error) Decision {
	e.log.Warn("quota check failed open",
		"kind", string(kind),
		"account", accountID,
		"error", err)
	return Decision{Allowed: true, Kind: kind}
}

// WindowKey is the DailyRequests map key for a window anchor.
func WindowKey(anchor time.Time) string {
	return strconv.FormatInt(anchor.UnixMilli(), 10)
}

// keyedMutex hands out one mutex per account ID. Entries are never evicted;
// the map is bounded by the number of active accounts.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
