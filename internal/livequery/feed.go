// Package livequery turns the store's pull-based queries into standing
// subscriptions: a subscriber names a scope and receives the full current
// result set on every committed mutation, until it cancels. Services call
// the Invalidate hooks after each successful write; the feed re-reads the
// store per subscription and pushes a replacement snapshot.
package livequery

import (
	"sync"

	recmodel "cratetrack/internal/record/model"
	usermodel "cratetrack/internal/user/model"
	"cratetrack/pkg/logger"
)

// RecordSource is the slice of the record repository the feed reads.
type RecordSource interface {
	ListByOwner(ownerID string) ([]recmodel.Record, error)
	ListAll() ([]recmodel.Record, error)
}

// ProfileSource is the slice of the user repository the feed reads.
type ProfileSource interface {
	List() ([]usermodel.Profile, error)
}

// RecordSub is a standing record subscription. C carries full-snapshot
// replacements, latest-wins: a slow consumer sees the newest snapshot, not
// every intermediate one. C is closed on Cancel.
type RecordSub struct {
	C chan []recmodel.Record

	ownerID string // empty means unscoped (privileged)
	feed    *Feed
	once    sync.Once
}

// Cancel tears the subscription down and closes C. Safe to call twice.
func (s *RecordSub) Cancel() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.recordSubs, s)
		s.feed.mu.Unlock()
		close(s.C)
	})
}

// ProfileSub is a standing profile subscription, privileged viewers only.
type ProfileSub struct {
	C chan []usermodel.Profile

	feed *Feed
	once sync.Once
}

func (s *ProfileSub) Cancel() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.profileSubs, s)
		s.feed.mu.Unlock()
		close(s.C)
	})
}

type Feed struct {
	records  RecordSource
	profiles ProfileSource

	mu          sync.Mutex
	recordSubs  map[*RecordSub]struct{}
	profileSubs map[*ProfileSub]struct{}
}

func NewFeed(records RecordSource, profiles ProfileSource) *Feed {
	return &Feed{
		records:     records,
		profiles:    profiles,
		recordSubs:  make(map[*RecordSub]struct{}),
		profileSubs: make(map[*ProfileSub]struct{}),
	}
}

// SubscribeRecords registers a subscription scoped to ownerID, or unscoped
// when ownerID is empty. The current result set is delivered immediately.
func (f *Feed) SubscribeRecords(ownerID string) (*RecordSub, error) {
	snapshot, err := f.queryRecords(ownerID)
	if err != nil {
		return nil, err
	}

	sub := &RecordSub{C: make(chan []recmodel.Record, 1), ownerID: ownerID, feed: f}
	sub.C <- snapshot

	f.mu.Lock()
	f.recordSubs[sub] = struct{}{}
	f.mu.Unlock()
	return sub, nil
}

// SubscribeProfiles registers an unscoped profile subscription.
func (f *Feed) SubscribeProfiles() (*ProfileSub, error) {
	snapshot, err := f.profiles.List()
	if err != nil {
		return nil, err
	}

	sub := &ProfileSub{C: make(chan []usermodel.Profile, 1), feed: f}
	sub.C <- snapshot

	f.mu.Lock()
	f.profileSubs[sub] = struct{}{}
	f.mu.Unlock()
	return sub, nil
}

// InvalidateRecords pushes a fresh snapshot to every record subscription.
// A failed re-read leaves that subscriber on its stale snapshot.
func (f *Feed) InvalidateRecords() {
	f.mu.Lock()
	subs := make([]*RecordSub, 0, len(f.recordSubs))
	for sub := range f.recordSubs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		snapshot, err := f.queryRecords(sub.ownerID)
		if err != nil {
			logger.Sugar.Errorf("Live query refresh failed for owner %q: %v", sub.ownerID, err)
			continue
		}
		f.mu.Lock()
		if _, active := f.recordSubs[sub]; active {
			pushRecords(sub.C, snapshot)
		}
		f.mu.Unlock()
	}
}

// InvalidateProfiles pushes a fresh snapshot to every profile subscription.
func (f *Feed) InvalidateProfiles() {
	f.mu.Lock()
	subs := make([]*ProfileSub, 0, len(f.profileSubs))
	for sub := range f.profileSubs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		snapshot, err := f.profiles.List()
		if err != nil {
			logger.Sugar.Errorf("Profile live query refresh failed: %v", err)
			continue
		}
		f.mu.Lock()
		if _, active := f.profileSubs[sub]; active {
			pushProfiles(sub.C, snapshot)
		}
		f.mu.Unlock()
	}
}

func (f *Feed) queryRecords(ownerID string) ([]recmodel.Record, error) {
	if ownerID == "" {
		return f.records.ListAll()
	}
	return f.records.ListByOwner(ownerID)
}

// pushRecords replaces a pending unread snapshot instead of blocking.
func pushRecords(c chan []recmodel.Record, snapshot []recmodel.Record) {
	for {
		select {
		case c <- snapshot:
			return
		default:
			select {
			case <-c:
			default:
			}
		}
	}
}

func pushProfiles(c chan []usermodel.Profile, snapshot []usermodel.Profile) {
	for {
		select {
		case c <- snapshot:
			return
		default:
			select {
			case <-c:
			default:
			}
		}
	}
}
