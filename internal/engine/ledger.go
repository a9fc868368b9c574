package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/vitalia-app/vitalia/internal/metrics"
)

// Ledger records which schedule occurrences already fired. At most one
// reminder event is ever emitted per key; this is the engine's core
// correctness property.
type Ledger interface {
	HasFired(key string) bool
	MarkFired(key string)
}

// FlagStore is the device-local flag half of the store.
type FlagStore interface {
	HasFlag(key string) (bool, error)
	SetFlag(key string, ttl time.Duration) error
}

// Keys embed the calendar date, so expiry is housekeeping only.
const ledgerTTL = 48 * time.Hour

// BadgerLedger is a Ledger over the Badger-backed flag store. It fails
// open: when the store errors, HasFired reports false so reminders keep
// flowing at the cost of a possible duplicate.
type BadgerLedger struct {
	flags  FlagStore
	logger *zap.Logger
}

// NewBadgerLedger creates a ledger over the given flag store.
func NewBadgerLedger(flags FlagStore, logger *zap.Logger) *BadgerLedger {
	return &BadgerLedger{flags: flags, logger: logger}
}

// HasFired reports whether the occurrence already fired.
func (l *BadgerLedger) HasFired(key string) bool {
	fired, err := l.flags.HasFlag(key)
	if err != nil {
		metrics.LedgerFailures.Inc()
		l.logger.Warn("Ledger read failed, treating as not fired",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}
	return fired
}

// MarkFired records the occurrence as fired.
func (l *BadgerLedger) MarkFired(key string) {
	if err := l.flags.SetFlag(key, ledgerTTL); err != nil {
		metrics.LedgerFailures.Inc()
		l.logger.Warn("Ledger write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
