package tracker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratetrack/internal/apperr"
	"cratetrack/internal/livequery"
	"cratetrack/internal/record/model"
	recordservice "cratetrack/internal/record/service"
	usermodel "cratetrack/internal/user/model"
	"cratetrack/pkg/geocode"
	"cratetrack/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// memStore is an in-memory stand-in for the record repository; it satisfies
// both the service's store surface and the feed's query surface.
type memStore struct {
	mu      sync.Mutex
	records map[string]model.Record
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]model.Record)}
}

func (s *memStore) Create(rec *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec
	return nil
}

func (s *memStore) UpdateLocation(id, ownerID string, lat, lon float64, address string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		return 0, nil
	}
	rec.Location = model.Location{Latitude: lat, Longitude: lon, Address: &address}
	s.records[id] = rec
	return 1, nil
}

func (s *memStore) Delete(id, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		return 0, nil
	}
	delete(s.records, id)
	return 1, nil
}

func (s *memStore) ListByOwner(ownerID string) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Record{}
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memStore) ListAll() ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Record{}
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

type emptyProfiles struct{}

func (emptyProfiles) List() ([]usermodel.Profile, error) { return nil, nil }

// stubGeocoder answers forward lookups with a fixed result and reverse
// lookups with a fixed address, either of which can be forced to fail.
type stubGeocoder struct {
	forward    *geocode.Result
	reverseErr bool
}

func (g *stubGeocoder) Search(context.Context, string) (*geocode.Result, error) {
	if g.forward == nil {
		return nil, geocode.ErrNotFound
	}
	return g.forward, nil
}

func (g *stubGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	if g.reverseErr {
		return "", geocode.ErrNotFound
	}
	return "1 Test Street, Testville", nil
}

func ptr(f float64) *float64 { return &f }

func setup(t *testing.T, geo *stubGeocoder) (*memStore, *livequery.Feed, *recordservice.RecordService) {
	t.Helper()
	store := newMemStore()
	feed := livequery.NewFeed(store, emptyProfiles{})
	svc := recordservice.NewRecordService(store, geo, feed)
	return store, feed, svc
}

func startMirror(t *testing.T, feed RecordFeed, ownerID string) *Mirror {
	t.Helper()
	m := NewMirror(feed, ownerID)
	require.NoError(t, m.Start())
	t.Cleanup(m.Close)
	return m
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond, msg)
}

func TestCreateBecomesVisibleThroughTheMirror(t *testing.T) {
	_, feed, svc := setup(t, &stubGeocoder{})
	mirror := startMirror(t, feed, "alice")

	_, err := svc.Create(context.Background(), "alice", model.CreateRecordRequest{
		Number: "  MSCU1234567  ", Latitude: ptr(52.37), Longitude: ptr(4.89),
	})
	require.NoError(t, err)

	eventually(t, func() bool { return len(mirror.Records()) == 1 }, "record should reach the mirror")

	got := mirror.Records()[0]
	assert.Equal(t, "MSCU1234567", got.Number, "number is trimmed before storage")
	assert.Equal(t, "alice", got.OwnerID)
	require.NotNil(t, got.Location.Address)
	assert.Equal(t, "1 Test Street, Testville", *got.Location.Address)
}

func TestCreateWithoutReverseGeocodeLeavesAddressEmpty(t *testing.T) {
	_, feed, svc := setup(t, &stubGeocoder{reverseErr: true})
	mirror := startMirror(t, feed, "alice")

	_, err := svc.Create(context.Background(), "alice", model.CreateRecordRequest{
		Number: "TCLU7654321", Latitude: ptr(1.29), Longitude: ptr(103.85),
	})
	require.NoError(t, err)

	eventually(t, func() bool { return len(mirror.Records()) == 1 }, "record should reach the mirror")
	assert.Nil(t, mirror.Records()[0].Location.Address, "display falls back to raw coordinates")
}

func TestMirrorNeverContainsForeignRecords(t *testing.T) {
	store, feed, svc := setup(t, &stubGeocoder{})

	// Seed the store directly with another owner's record: scoping must hold
	// even when the store contains foreign data.
	require.NoError(t, store.Create(&model.Record{
		ID: "bob-1", Number: "BOB", OwnerID: "bob", Timestamp: time.Now(),
	}))

	mirror := startMirror(t, feed, "alice")
	adminMirror := startMirror(t, feed, "")

	_, err := svc.Create(context.Background(), "alice", model.CreateRecordRequest{
		Number: "ALICE", Latitude: ptr(0), Longitude: ptr(0),
	})
	require.NoError(t, err)

	eventually(t, func() bool { return len(mirror.Records()) == 1 }, "alice's record should arrive")
	for _, rec := range mirror.Records() {
		assert.Equal(t, "alice", rec.OwnerID)
	}

	eventually(t, func() bool { return len(adminMirror.Records()) == 2 }, "privileged mirror sees all owners")
}

func TestDeleteRemovesFromMirrorAndSecondDeleteFails(t *testing.T) {
	_, feed, svc := setup(t, &stubGeocoder{})
	mirror := startMirror(t, feed, "alice")

	id, err := svc.Create(context.Background(), "alice", model.CreateRecordRequest{
		Number: "GONE", Latitude: ptr(0), Longitude: ptr(0),
	})
	require.NoError(t, err)
	eventually(t, func() bool { return len(mirror.Records()) == 1 }, "record should arrive")

	require.NoError(t, svc.Remove(id, "alice"))
	eventually(t, func() bool { return len(mirror.Records()) == 0 }, "record should leave the mirror")

	err = svc.Remove(id, "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrRemote), "second delete fails uniformly as a remote error")
	assert.Empty(t, mirror.Records(), "mirror stays sound after the failed delete")
}

func TestUpdateAddressRelocatesCoordinates(t *testing.T) {
	geo := &stubGeocoder{forward: &geocode.Result{
		Latitude: 37.42, Longitude: -122.08,
		DisplayName: "1600 Amphitheatre Parkway, Mountain View",
	}}
	_, feed, svc := setup(t, geo)
	mirror := startMirror(t, feed, "alice")

	id, err := svc.Create(context.Background(), "alice", model.CreateRecordRequest{
		Number: "MOVE", Latitude: ptr(52.37), Longitude: ptr(4.89),
	})
	require.NoError(t, err)
	eventually(t, func() bool { return len(mirror.Records()) == 1 }, "record should arrive")

	require.NoError(t, svc.UpdateAddress(context.Background(), id, "alice", "1600 Amphitheatre Parkway"))

	eventually(t, func() bool {
		recs := mirror.Records()
		return len(recs) == 1 && recs[0].Location.Latitude == 37.42
	}, "coordinates should move with the address")

	got := mirror.Records()[0]
	assert.Equal(t, -122.08, got.Location.Longitude)
	require.NotNil(t, got.Location.Address)
	assert.Equal(t, "1600 Amphitheatre Parkway, Mountain View", *got.Location.Address)
}

func TestMirrorErrorSlotHoldsOneMessage(t *testing.T) {
	_, feed, _ := setup(t, &stubGeocoder{})
	mirror := startMirror(t, feed, "alice")

	assert.Empty(t, mirror.Err())

	mirror.Report(apperr.Remotef("failed to add container"))
	first := mirror.Err()
	assert.Contains(t, first, "failed to add container")

	mirror.Report(apperr.Geocodef("no match for %q", "nowhere"))
	assert.NotEqual(t, first, mirror.Err(), "next failure replaces the slot")

	mirror.Report(nil)
	assert.Empty(t, mirror.Err(), "success clears the slot")
}

// flakyFeed hands out real subscriptions but remembers the latest one so a
// test can kill it and watch the mirror resubscribe.
type flakyFeed struct {
	feed *livequery.Feed

	mu   sync.Mutex
	last *livequery.RecordSub
}

func (f *flakyFeed) SubscribeRecords(ownerID string) (*livequery.RecordSub, error) {
	sub, err := f.feed.SubscribeRecords(ownerID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.last = sub
	f.mu.Unlock()
	return sub, nil
}

func (f *flakyFeed) killCurrent() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last.Cancel()
}

func TestMirrorResubscribesAfterFeedLoss(t *testing.T) {
	_, feed, svc := setup(t, &stubGeocoder{})
	flaky := &flakyFeed{feed: feed}
	mirror := startMirror(t, flaky, "alice")

	flaky.killCurrent()

	eventually(t, func() bool { return mirror.Err() != "" }, "outage should surface in the error slot")

	// A write after the outage must become visible once the mirror is back.
	_, err := svc.Create(context.Background(), "alice", model.CreateRecordRequest{
		Number: "AFTER", Latitude: ptr(0), Longitude: ptr(0),
	})
	require.NoError(t, err)

	eventually(t, func() bool {
		return len(mirror.Records()) == 1 && mirror.Err() == ""
	}, "mirror should resubscribe and catch up")
}

// stalledFeed serves the first subscription normally, then parks the next
// attempt until released, so a test can close the mirror while it is inside
// a reconnect attempt.
type stalledFeed struct {
	feed *livequery.Feed

	mu      sync.Mutex
	calls   int
	first   *livequery.RecordSub
	entered chan struct{}
	release chan struct{}
	retried chan *livequery.RecordSub
}

func newStalledFeed(feed *livequery.Feed) *stalledFeed {
	return &stalledFeed{
		feed:    feed,
		entered: make(chan struct{}),
		release: make(chan struct{}),
		retried: make(chan *livequery.RecordSub, 1),
	}
}

func (f *stalledFeed) SubscribeRecords(ownerID string) (*livequery.RecordSub, error) {
	f.mu.Lock()
	f.calls++
	isFirst := f.calls == 1
	f.mu.Unlock()

	if isFirst {
		sub, err := f.feed.SubscribeRecords(ownerID)
		f.mu.Lock()
		f.first = sub
		f.mu.Unlock()
		return sub, err
	}

	close(f.entered)
	<-f.release
	sub, err := f.feed.SubscribeRecords(ownerID)
	if err == nil {
		f.retried <- sub
	}
	return sub, err
}

func (f *stalledFeed) killFirst() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.first.Cancel()
}

func TestCloseDuringResubscribeCancelsTheNewSubscription(t *testing.T) {
	_, feed, _ := setup(t, &stubGeocoder{})
	stalled := newStalledFeed(feed)
	mirror := NewMirror(stalled, "alice")
	require.NoError(t, mirror.Start())

	stalled.killFirst()

	// Wait for the mirror to be parked inside the reconnect attempt, then
	// close it mid-flight and let the attempt come back with a live
	// subscription the mirror must not keep.
	select {
	case <-stalled.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("mirror never attempted to resubscribe")
	}

	mirror.Close()
	close(stalled.release)

	var next *livequery.RecordSub
	select {
	case next = <-stalled.retried:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect attempt never completed")
	}

	eventually(t, func() bool {
		for {
			select {
			case _, ok := <-next.C:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, "subscription obtained during shutdown must be cancelled")
}

func TestMirrorCloseIsIdempotent(t *testing.T) {
	_, feed, _ := setup(t, &stubGeocoder{})
	mirror := NewMirror(feed, "alice")
	require.NoError(t, mirror.Start())

	mirror.Close()
	mirror.Close()
}
