// Package ledger provides an in-memory balance ledger implementing the
// registry's settlement port. Balances are credited up front and debited
// exactly once per session at finalization.
package ledger

import (
	"fmt"
	"sync"

	"github.com/voltgrid/sessiond/core/session"
	"github.com/voltgrid/sessiond/core/tariff"
)

// MemoryLedger is a thread-safe in-memory account ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]*tariff.Amount
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: map[string]*tariff.Amount{}}
}

// Credit adds funds to the account, creating it if necessary.
func (l *MemoryLedger) Credit(account string, amount *tariff.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.balances[account]
	if !ok {
		cur = tariff.NewAmount(0)
	}
	l.balances[account] = cur.Add(amount)
}

// Balance returns the current balance of the account, zero for unknown
// accounts.
func (l *MemoryLedger) Balance(account string) (*tariff.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.balances[account]
	if !ok {
		return tariff.NewAmount(0), nil
	}
	return cur, nil
}

// Debit withdraws the amount atomically or fails with
// session.ErrInsufficientFunds leaving the balance untouched.
func (l *MemoryLedger) Debit(account string, amount *tariff.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.balances[account]
	if !ok {
		cur = tariff.NewAmount(0)
	}
	if cur.Cmp(amount) < 0 {
		return fmt.Errorf("account %s balance %s below %s: %w", account, cur, amount, session.ErrInsufficientFunds)
	}
	l.balances[account] = cur.Sub(amount)
	return nil
}
