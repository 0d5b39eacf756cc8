package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"cratetrack/internal/apperr"
	"cratetrack/internal/record/model"
	"cratetrack/pkg/geocode"
	"cratetrack/pkg/logger"
)

// RecordStore is the persistence surface the service writes through.
// *repository.RecordRepository satisfies it.
type RecordStore interface {
	Create(rec *model.Record) error
	UpdateLocation(id, ownerID string, lat, lon float64, address string) (int64, error)
	Delete(id, ownerID string) (int64, error)
	ListByOwner(ownerID string) ([]model.Record, error)
	ListAll() ([]model.Record, error)
}

// Geocoder is the address lookup surface. *geocode.Client satisfies it.
type Geocoder interface {
	Search(ctx context.Context, query string) (*geocode.Result, error)
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Notifier is poked after every committed write so live subscriptions see
// the change. *livequery.Feed satisfies it.
type Notifier interface {
	InvalidateRecords()
}

type RecordService struct {
	Store RecordStore
	Geo   Geocoder
	Feed  Notifier
}

func NewRecordService(store RecordStore, geo Geocoder, feed Notifier) *RecordService {
	return &RecordService{Store: store, Geo: geo, Feed: feed}
}

// Create validates the number and position, reverse-geocodes the address on
// a best-effort basis, and inserts the record stamped with ownerID. The
// caller observes the new record through the live feed, not this return.
func (s *RecordService) Create(ctx context.Context, ownerID string, req model.CreateRecordRequest) (string, error) {
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return "", apperr.Validationf("please enter a container number")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return "", apperr.Locationf("unable to get location")
	}
	lat, lon := *req.Latitude, *req.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", apperr.Locationf("unable to get location")
	}

	rec := model.Record{
		ID:        uuid.NewString(),
		Number:    number,
		Location:  model.Location{Latitude: lat, Longitude: lon},
		Timestamp: time.Now().UTC(),
		OwnerID:   ownerID,
	}

	// Address is display-only; a failed lookup falls back to raw coordinates.
	if address, err := s.Geo.Reverse(ctx, lat, lon); err == nil {
		rec.Location.Address = &address
	} else {
		logger.Sugar.Warnf("Reverse geocode failed for record %s: %v", rec.ID, err)
	}

	if err := s.Store.Create(&rec); err != nil {
		return "", apperr.Remotef("failed to add container")
	}
	s.Feed.InvalidateRecords()
	return rec.ID, nil
}

// UpdateAddress re-geocodes the query and relocates the record to the
// result: coordinates move together with the label. Missing and non-owned
// records fail uniformly as a remote error.
func (s *RecordService) UpdateAddress(ctx context.Context, id, ownerID, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return apperr.Validationf("please enter an address")
	}

	result, err := s.Geo.Search(ctx, query)
	if err != nil {
		return apperr.Geocodef("no match for %q", query)
	}

	rows, err := s.Store.UpdateLocation(id, ownerID, result.Latitude, result.Longitude, result.DisplayName)
	if err != nil {
		return apperr.Remotef("failed to update address")
	}
	if rows == 0 {
		return apperr.Remotef("failed to update address")
	}
	s.Feed.InvalidateRecords()
	return nil
}

// Remove deletes the record. Deleting an unknown or already-deleted id
// reports the same remote error as any other store failure.
func (s *RecordService) Remove(id, ownerID string) error {
	rows, err := s.Store.Delete(id, ownerID)
	if err != nil {
		return apperr.Remotef("failed to remove container")
	}
	if rows == 0 {
		return apperr.Remotef("failed to remove container")
	}
	s.Feed.InvalidateRecords()
	return nil
}

// List enumerates records for ownerID, or every record when ownerID is
// empty (privileged view).
func (s *RecordService) List(ownerID string) ([]model.Record, error) {
	var (
		records []model.Record
		err     error
	)
	if ownerID == "" {
		records, err = s.Store.ListAll()
	} else {
		records, err = s.Store.ListByOwner(ownerID)
	}
	if err != nil {
		return nil, apperr.Remotef("failed to load containers")
	}
	return records, nil
}
