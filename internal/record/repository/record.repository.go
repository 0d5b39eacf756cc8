package repository

import (
	"database/sql"

	"cratetrack/internal/record/model"
	"cratetrack/pkg/logger"
)

type RecordRepository struct {
	DB *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{DB: db}
}

func (r *RecordRepository) Create(rec *model.Record) error {
	_, err := r.DB.Exec(
		`INSERT INTO records (id, number, latitude, longitude, address, recorded_at, owner_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Number, rec.Location.Latitude, rec.Location.Longitude,
		rec.Location.Address, rec.Timestamp, rec.OwnerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to create record %s: %v", rec.ID, err)
	}
	return err
}

// UpdateLocation replaces coordinates and address in one write. The owner_id
// predicate makes non-owned updates report zero rows instead of leaking
// another user's record.
func (r *RecordRepository) UpdateLocation(id, ownerID string, lat, lon float64, address string) (int64, error) {
	result, err := r.DB.Exec(
		`UPDATE records SET latitude = $1, longitude = $2, address = $3 WHERE id = $4 AND owner_id = $5`,
		lat, lon, address, id, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update location for record %s: %v", id, err)
		return 0, err
	}
	return result.RowsAffected()
}

func (r *RecordRepository) Delete(id, ownerID string) (int64, error) {
	result, err := r.DB.Exec(`DELETE FROM records WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete record %s: %v", id, err)
		return 0, err
	}
	return result.RowsAffected()
}

// ListByOwner enumerates one owner's records. Snapshot order follows the
// store's enumeration; consumers must not rely on it across snapshots.
func (r *RecordRepository) ListByOwner(ownerID string) ([]model.Record, error) {
	rows, err := r.DB.Query(
		`SELECT id, number, latitude, longitude, address, recorded_at, owner_id
		 FROM records WHERE owner_id = $1`, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list records for owner %s: %v", ownerID, err)
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListAll enumerates every record. Privileged callers only.
func (r *RecordRepository) ListAll() ([]model.Record, error) {
	rows, err := r.DB.Query(
		`SELECT id, number, latitude, longitude, address, recorded_at, owner_id FROM records`)
	if err != nil {
		logger.Sugar.Errorf("Failed to list all records: %v", err)
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	records := []model.Record{}
	for rows.Next() {
		var rec model.Record
		var address sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Number, &rec.Location.Latitude,
			&rec.Location.Longitude, &address, &rec.Timestamp, &rec.OwnerID); err != nil {
			logger.Sugar.Errorf("Failed to scan record row: %v", err)
			return nil, err
		}
		if address.Valid {
			rec.Location.Address = &address.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
