// Package usagelog records tool check-ins. Clients ping on launch with
// their license key and hardware fingerprint; events are buffered in
// the engine and flushed in batches. Counts and distinct fingerprints
// feed the admin usage report.
package usagelog

import (
	"time"

	"github.com/phamhp/napstore/id"
)

type Event struct {
	ID        id.UsageEventID `json:"id"`
	LicenseID id.LicenseID    `json:"license_id"`
	UserID    id.UserID       `json:"user_id"`
	Product   string          `json:"product"`
	HWID      string          `json:"hwid"`

	// Date and Month are denormalized bucket keys ("2006-01-02",
	// "2006-01") so the usage report can group without date math in
	// the store.
	Date  string `json:"date"`
	Month string `json:"month"`

	At time.Time `json:"at"`
}

// NewEvent stamps an event with its time buckets.
func NewEvent(licenseID id.LicenseID, userID id.UserID, product, hwid string, at time.Time) *Event {
	return &Event{
		ID:        id.NewUsageEventID(),
		LicenseID: licenseID,
		UserID:    userID,
		Product:   product,
		HWID:      hwid,
		Date:      at.Format("2006-01-02"),
		Month:     at.Format("2006-01"),
		At:        at,
	}
}
