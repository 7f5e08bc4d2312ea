// Package reservation keeps a naive counting reservation book: a slot
// is a (date, time) pair, and at most a fixed number of confirmed
// reservations fit in one slot. No true calendar conflict resolution.
package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
)

// DefaultMaxTablesPerSlot applies when the catalog does not set one.
const DefaultMaxTablesPerSlot = 5

// Details are the caller-provided reservation fields, usually parsed
// out of free text by the language model collaborator.
type Details struct {
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Date      string `json:"date,omitempty"` // YYYY-MM-DD
	Time      string `json:"time,omitempty"` // HH:MM, 24h
	PartySize int    `json:"party_size,omitempty"`
}

// ApplyDefaults fills missing fields: party of two, tomorrow at 19:00.
func (d *Details) ApplyDefaults(now time.Time) {
	if d.PartySize <= 0 {
		d.PartySize = 2
	}
	if d.Time == "" {
		d.Time = "19:00"
	}
	if d.Date == "" {
		d.Date = now.AddDate(0, 0, 1).Format("2006-01-02")
	}
}

// Reservation is one confirmed booking.
type Reservation struct {
	Details
	BusinessID string    `json:"business_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Book persists reservations for one business to a JSON file and
// enforces the per-slot table limit.
type Book struct {
	mu         sync.Mutex
	path       string
	businessID string
	maxPerSlot int
	logger     logger.Logger
}

func NewBook(dir, businessID string, maxPerSlot int, log logger.Logger) *Book {
	if maxPerSlot <= 0 {
		maxPerSlot = DefaultMaxTablesPerSlot
	}
	return &Book{
		path:       filepath.Join(dir, fmt.Sprintf("reservations_%s.json", businessID)),
		businessID: businessID,
		maxPerSlot: maxPerSlot,
		logger:     log.WithFields(map[string]interface{}{"component": "reservation_book"}),
	}
}

// Create books a table for the slot in the details, which must already
// have defaults applied. A full slot returns a RESERVATION_UNAVAILABLE
// error and writes nothing.
func (b *Book) Create(_ context.Context, d Details) (*Reservation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.readAllLocked()
	if err != nil {
		return nil, err
	}

	slot := fmt.Sprintf("%s %s", d.Date, d.Time)
	confirmed := 0
	for _, r := range all {
		if r.Status == "confirmed" && r.Date == d.Date && r.Time == d.Time {
			confirmed++
		}
	}
	if confirmed >= b.maxPerSlot {
		return nil, stderrors.NewReservationUnavailableError(slot)
	}

	res := Reservation{
		Details:    d,
		BusinessID: b.businessID,
		Status:     "confirmed",
		CreatedAt:  time.Now(),
	}
	all = append(all, res)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return nil, err
	}

	b.logger.Info("reservation confirmed", map[string]interface{}{
		"slot":       slot,
		"party_size": d.PartySize,
	})
	return &res, nil
}

// Available reports whether the slot still has a table.
func (b *Book) Available(date, timeSlot string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.readAllLocked()
	if err != nil {
		return false, err
	}
	confirmed := 0
	for _, r := range all {
		if r.Status == "confirmed" && r.Date == date && r.Time == timeSlot {
			confirmed++
		}
	}
	return confirmed < b.maxPerSlot, nil
}

// ReadAll returns every stored reservation, oldest first.
func (b *Book) ReadAll() ([]Reservation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readAllLocked()
}

// readAllLocked treats a missing or corrupt file as an empty book, the
// same degradation the order log uses.
func (b *Book) readAllLocked() ([]Reservation, error) {
	raw, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var all []Reservation
	if err := json.Unmarshal(raw, &all); err != nil {
		b.logger.Warn("reservation file corrupt, starting fresh", map[string]interface{}{
			"path":  b.path,
			"error": err.Error(),
		})
		return nil, nil
	}
	return all, nil
}
