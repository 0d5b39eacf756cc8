package model

import "time"

// Location is the geographic position captured for a record. Address is
// advisory display text and may lag the coordinates when edited separately.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   *string `json:"address,omitempty"`
}

// Record is one tracked container entry. Coordinates and timestamp are set
// at creation; OwnerID is stamped from the acting identity and never
// reassigned.
type Record struct {
	ID        string    `json:"id"`
	Number    string    `json:"number"`
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	OwnerID   string    `json:"owner_id"`
}

// Latitude and Longitude stay untagged: a missing device position is a
// location failure, not a malformed request, and the service classifies it.
type CreateRecordRequest struct {
	Number    string   `json:"number" validate:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type CreateRecordResponse struct {
	RecordID string `json:"record_id"`
}

type UpdateAddressRequest struct {
	Address string `json:"address" validate:"required"`
}
