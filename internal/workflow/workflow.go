// Package workflow is the categorization state machine. A session holds the
// current step for one user: which transaction awaits a choice and which are
// queued behind it. Suspension state lives here, not in control flow, so an
// abandoned session is just a pending transaction that the next review pass
// picks up again.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kasa/internal/core"
)

type State int

const (
	StateIdle State = iota
	StateAwaitingChoice
)

// Resolver finalizes a category choice. Implemented by the engine.
type Resolver interface {
	ResolveCategory(ctx context.Context, txID, category string) (*core.Transaction, error)
}

// PendingLister loads the transactions still awaiting categorization.
type PendingLister interface {
	UncategorizedTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
}

// Prompt asks the user to pick exactly one of Choices for Transaction.
type Prompt struct {
	Transaction core.Transaction
	Choices     []string
}

type session struct {
	state   State
	pending core.Transaction
	queue   []core.Transaction
}

// Manager keeps one session per user. Transactions are processed strictly
// one at a time: the next prompt is only produced after the previous choice
// is resolved.
type Manager struct {
	resolver Resolver
	store    PendingLister

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(resolver Resolver, store PendingLister) *Manager {
	return &Manager{
		resolver: resolver,
		store:    store,
		sessions: make(map[string]*session),
	}
}

// Begin starts a review of every pending transaction for the user. It
// returns the first prompt, or nil when nothing is pending. A user without
// categories is refused before anything suspends.
func (m *Manager) Begin(ctx context.Context, user *core.User) (*Prompt, error) {
	if len(user.Categories) == 0 {
		return nil, core.ErrNoCategories
	}

	pending, err := m.store.UncategorizedTransactions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return m.start(user, pending), nil
}

// BeginOne starts a session for a single freshly ingested transaction. Both
// entry points converge on the same per-transaction transition.
func (m *Manager) BeginOne(user *core.User, t core.Transaction) (*Prompt, error) {
	if len(user.Categories) == 0 {
		return nil, core.ErrNoCategories
	}
	return m.start(user, []core.Transaction{t}), nil
}

func (m *Manager) start(user *core.User, queue []core.Transaction) *Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &session{
		state:   StateAwaitingChoice,
		pending: queue[0],
		queue:   queue[1:],
	}
	m.sessions[user.ID] = s

	return &Prompt{Transaction: s.pending, Choices: user.SortedCategories()}
}

// Choose resolves the awaited transaction with the selected category and
// advances the session. It returns the resolved transaction plus the next
// prompt, or (tx, nil) when the queue is drained. An invalid selection
// returns the same prompt again so the caller can re-ask.
func (m *Manager) Choose(ctx context.Context, user *core.User, category string) (*core.Transaction, *Prompt, error) {
	m.mu.Lock()
	s, ok := m.sessions[user.ID]
	m.mu.Unlock()
	if !ok || s.state != StateAwaitingChoice {
		return nil, nil, core.ErrNotFound
	}

	resolved, err := m.resolver.ResolveCategory(ctx, s.pending.ID, category)
	if errors.Is(err, core.ErrInvalidCategory) {
		return nil, &Prompt{Transaction: s.pending, Choices: user.SortedCategories()}, err
	}
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(s.queue) == 0 {
		delete(m.sessions, user.ID)
		return resolved, nil, nil
	}
	s.pending = s.queue[0]
	s.queue = s.queue[1:]
	return resolved, &Prompt{Transaction: s.pending, Choices: user.SortedCategories()}, nil
}

// Abandon drops the session. The pending transactions simply stay
// uncategorized and are offered again by the next Begin.
func (m *Manager) Abandon(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// StateOf reports the session state for a user.
func (m *Manager) StateOf(userID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.state
	}
	return StateIdle
}
