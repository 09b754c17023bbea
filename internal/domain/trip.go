// Package domain contains the core data types for the TravPlanner share service.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (repo, service, handler, sharesync).
package domain

import (
	"fmt"
	"strings"
)

// PayloadVersion is the newest payload schema this build understands.
// Clients refuse to apply payloads with a higher version.
const PayloadVersion = 1

// Trip is the top-level record of a trip as exported by a client's local store.
// Dates are calendar dates in "2006-01-02" form; the client owns their meaning.
type Trip struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Destination  string  `json:"destination,omitempty"`
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate"`
	BaseCurrency string  `json:"baseCurrency,omitempty"`
	Budget       float64 `json:"budget,omitempty"`
}

// Schedule is one timetable entry on a day of the trip.
type Schedule struct {
	ID        string  `json:"id"`
	TripID    string  `json:"tripId"`
	Date      string  `json:"date"`
	Title     string  `json:"title"`
	StartTime string  `json:"startTime,omitempty"` // "15:04"
	EndTime   string  `json:"endTime,omitempty"`
	Place     string  `json:"place,omitempty"`
	Memo      string  `json:"memo,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
	Currency  string  `json:"currency,omitempty"`
}

// DayInfo carries per-day notes shown above a day's schedules.
type DayInfo struct {
	Date  string `json:"date"`
	Title string `json:"title,omitempty"`
	Memo  string `json:"memo,omitempty"`
}

// ChecklistCategory groups packing checklist items.
type ChecklistCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChecklistItem is a single packing checklist entry.
type ChecklistItem struct {
	ID         string `json:"id"`
	CategoryID string `json:"categoryId"`
	Text       string `json:"text"`
	Checked    bool   `json:"checked"`
}

// Payload is the full exported snapshot of one trip. It is always pushed and
// pulled as a whole; there is no field-level merge.
type Payload struct {
	Version             int                 `json:"version"`
	Trip                Trip                `json:"trip"`
	Schedules           []Schedule          `json:"schedules"`
	DayInfos            []DayInfo           `json:"dayInfos"`
	ChecklistCategories []ChecklistCategory `json:"checklistCategories"`
	ChecklistItems      []ChecklistItem     `json:"checklistItems"`
	ExchangeRates       map[string]float64  `json:"exchangeRates"`
}

// Validate checks the structural rules every stored payload must satisfy.
// It returns an error wrapping ErrValidation.
func (p Payload) Validate() error {
	if p.Version < 1 {
		return fmt.Errorf("%w: payload version must be >= 1", ErrValidation)
	}
	if strings.TrimSpace(p.Trip.ID) == "" {
		return fmt.Errorf("%w: payload trip id is required", ErrValidation)
	}
	for _, s := range p.Schedules {
		if s.TripID != "" && s.TripID != p.Trip.ID {
			return fmt.Errorf("%w: schedule %s belongs to trip %s", ErrValidation, s.ID, s.TripID)
		}
	}
	return nil
}

// Supported reports whether this build can apply the payload without losing data.
func (p Payload) Supported() bool {
	return p.Version <= PayloadVersion
}
