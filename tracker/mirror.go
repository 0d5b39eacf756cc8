package tracker

import (
	"sync"
	"time"

	"cratetrack/internal/livequery"
	"cratetrack/internal/record/model"
	"cratetrack/pkg/logger"
)

const (
	resubscribeInitial = 500 * time.Millisecond
	resubscribeMax     = 30 * time.Second
)

// RecordFeed is the subscription surface the mirror consumes.
// *livequery.Feed satisfies it.
type RecordFeed interface {
	SubscribeRecords(ownerID string) (*livequery.RecordSub, error)
}

// Mirror keeps a local copy of one owner's records (or every record, for a
// privileged viewer) consistent with the store's live query. Writes never
// touch the mirror directly; their effects arrive through the next
// snapshot. At most one user-visible error message is held at a time,
// replaced by the next failure or cleared by the next success.
type Mirror struct {
	feed    RecordFeed
	ownerID string

	mu      sync.RWMutex
	records []model.Record
	errMsg  string
	sub     *livequery.RecordSub

	done      chan struct{}
	closeOnce sync.Once
}

// NewMirror builds a mirror scoped to ownerID; an empty ownerID follows
// every record (privileged mode).
func NewMirror(feed RecordFeed, ownerID string) *Mirror {
	return &Mirror{feed: feed, ownerID: ownerID, done: make(chan struct{})}
}

// Start opens the subscription and begins applying snapshots until Close.
func (m *Mirror) Start() error {
	sub, err := m.feed.SubscribeRecords(m.ownerID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()

	go m.run(sub)
	return nil
}

// Close cancels the subscription and stops the mirror. Safe to call twice.
func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.mu.Lock()
		if m.sub != nil {
			m.sub.Cancel()
		}
		m.mu.Unlock()
	})
}

// Records returns the current snapshot. The returned slice is the caller's
// to keep; later snapshots never mutate it.
func (m *Mirror) Records() []model.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Record, len(m.records))
	copy(out, m.records)
	return out
}

// Filtered applies the view predicates to the current snapshot.
func (m *Mirror) Filtered(searchTerm, dateFilter string) []model.Record {
	return Filter(m.Records(), searchTerm, dateFilter)
}

// Err returns the current user-visible error message, or "".
func (m *Mirror) Err() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errMsg
}

// Report records an operation failure in the error slot. A nil error
// clears the slot, so callers can report every operation outcome.
func (m *Mirror) Report(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.errMsg = ""
		return
	}
	m.errMsg = err.Error()
}

// run applies snapshots until the feed terminates, then resubscribes with
// capped exponential backoff. Stale data stays visible while disconnected.
func (m *Mirror) run(sub *livequery.RecordSub) {
	for {
		for snapshot := range sub.C {
			m.mu.Lock()
			m.records = snapshot
			m.mu.Unlock()
		}

		select {
		case <-m.done:
			return
		default:
		}

		m.Report(errLiveUpdatesInterrupted{})
		backoff := resubscribeInitial
		for {
			select {
			case <-m.done:
				return
			case <-time.After(backoff):
			}

			next, err := m.feed.SubscribeRecords(m.ownerID)
			if err == nil {
				m.mu.Lock()
				// Close may have run while we were subscribing; it cancelled
				// the old subscription, not this one. Re-check before
				// committing so the new subscription cannot outlive us.
				select {
				case <-m.done:
					m.mu.Unlock()
					next.Cancel()
					return
				default:
				}
				m.sub = next
				m.errMsg = ""
				m.mu.Unlock()
				sub = next
				break
			}
			logger.Sugar.Warnf("Mirror resubscribe failed (owner %q): %v", m.ownerID, err)
			if backoff < resubscribeMax {
				backoff *= 2
			}
		}
	}
}

type errLiveUpdatesInterrupted struct{}

func (errLiveUpdatesInterrupted) Error() string {
	return "live updates interrupted, reconnecting"
}
