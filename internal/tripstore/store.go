// Package tripstore is the local trip store a client edits and the share sync
// engine mirrors. It holds whole trips (record, schedules, day infos, checklist
// and exchange rates) keyed by trip id, and reports every mutation to
// registered observers.
package tripstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// ErrTripNotFound is returned when a trip id is unknown to the store.
var ErrTripNotFound = errors.New("trip not found")

// Store is an in-memory trip store. It is safe for concurrent use.
//
// Observers run synchronously on the mutating goroutine after the store lock
// is released, so a callback may read the store (Export) but a mutation made
// inside a callback is reported to observers again.
type Store struct {
	mu        sync.RWMutex
	trips     map[string]domain.Payload
	observers map[int]func(tripID string)
	nextObs   int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		trips:     make(map[string]domain.Payload),
		observers: make(map[int]func(tripID string)),
	}
}

// OnLocalChange registers fn to be called with the affected trip id after
// every subsequent mutation, and returns a func that removes it.
func (s *Store) OnLocalChange(fn func(tripID string)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Trips lists the stored trip records ordered by start date, then id.
func (s *Store) Trips() []domain.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Trip, 0, len(s.trips))
	for _, p := range s.trips {
		out = append(out, p.Trip)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate < out[j].StartDate
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Export returns a deep copy of the full payload of one trip, stamped with the
// current payload version.
func (s *Store) Export(tripID string) (domain.Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.trips[tripID]
	if !ok {
		return domain.Payload{}, fmt.Errorf("tripstore.Export %s: %w", tripID, ErrTripNotFound)
	}
	out := clonePayload(p)
	out.Version = domain.PayloadVersion
	return out, nil
}

// Replace overwrites every record of payload.Trip.ID with the payload's
// contents, creating the trip if needed. Observers have run when it returns.
func (s *Store) Replace(p domain.Payload) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("tripstore.Replace: %w", err)
	}
	return s.mutate(p.Trip.ID, true, func(cur *domain.Payload) error {
		*cur = clonePayload(p)
		return nil
	})
}

// Delete removes a trip and everything attached to it. Deleting an unknown
// trip is not an error and notifies nobody.
func (s *Store) Delete(tripID string) error {
	s.mu.Lock()
	_, ok := s.trips[tripID]
	delete(s.trips, tripID)
	obs := s.snapshotObservers()
	s.mu.Unlock()

	if ok {
		notify(obs, tripID)
	}
	return nil
}

// PutTrip creates a trip or updates its record, keeping attached data.
func (s *Store) PutTrip(t domain.Trip) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("tripstore.PutTrip: %w: trip id is required", domain.ErrValidation)
	}
	return s.mutate(t.ID, true, func(cur *domain.Payload) error {
		cur.Trip = t
		return nil
	})
}

// UpsertSchedule inserts or replaces a schedule by id.
func (s *Store) UpsertSchedule(tripID string, sc domain.Schedule) error {
	if sc.ID == "" {
		return fmt.Errorf("tripstore.UpsertSchedule: %w: schedule id is required", domain.ErrValidation)
	}
	sc.TripID = tripID
	return s.mutate(tripID, false, func(cur *domain.Payload) error {
		for i := range cur.Schedules {
			if cur.Schedules[i].ID == sc.ID {
				cur.Schedules[i] = sc
				return nil
			}
		}
		cur.Schedules = append(cur.Schedules, sc)
		return nil
	})
}

// DeleteSchedule removes a schedule by id.
func (s *Store) DeleteSchedule(tripID, scheduleID string) error {
	return s.mutate(tripID, false, func(cur *domain.Payload) error {
		for i := range cur.Schedules {
			if cur.Schedules[i].ID == scheduleID {
				cur.Schedules = append(cur.Schedules[:i], cur.Schedules[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("schedule %s: %w", scheduleID, domain.ErrNotFound)
	})
}

// SetDayInfo inserts or replaces the notes of one day.
func (s *Store) SetDayInfo(tripID string, d domain.DayInfo) error {
	return s.mutate(tripID, false, func(cur *domain.Payload) error {
		for i := range cur.DayInfos {
			if cur.DayInfos[i].Date == d.Date {
				cur.DayInfos[i] = d
				return nil
			}
		}
		cur.DayInfos = append(cur.DayInfos, d)
		return nil
	})
}

// UpsertChecklistCategory inserts or renames a checklist category.
func (s *Store) UpsertChecklistCategory(tripID string, c domain.ChecklistCategory) error {
	return s.mutate(tripID, false, func(cur *domain.Payload) error {
		for i := range cur.ChecklistCategories {
			if cur.ChecklistCategories[i].ID == c.ID {
				cur.ChecklistCategories[i] = c
				return nil
			}
		}
		cur.ChecklistCategories = append(cur.ChecklistCategories, c)
		return nil
	})
}

// DeleteChecklistCategory removes a category and every item in it.
func (s *Store) DeleteChecklistCategory(tripID, categoryID string) error {
	return s.mutate(tripID, false, func(cur *domain.Payload) error {
		cats := cur.ChecklistCategories[:0]
		for _, c := range cur.ChecklistCategories {
			if c.ID != categoryID {
				cats = append(cats, c)
			}
		}
		cur.ChecklistCategories = cats

		items := cur.ChecklistItems[:0]
		for _, it := range cur.ChecklistItems {
			if it.CategoryID != categoryID {
				items = append(items, it)
			}
		}
		cur.ChecklistItems = items
		return nil
	})
}

// UpsertChecklistItem inserts or replaces a checklist item. Its category must exist.
func (s *Store) UpsertChecklistItem(tripID string, it domain.ChecklistItem) error {
	return s.mutate(tripID, false, func(cur *domain.Payload) error {
		if !hasCategory(cur.ChecklistCategories, it.CategoryID) {
			return fmt.Errorf("checklist category %s: %w", it.CategoryID, domain.ErrNotFound)
		}
		for i := range cur.ChecklistItems {
			if cur.ChecklistItems[i].ID == it.ID {
				cur.ChecklistItems[i] = it
				return nil
			}
		}
		cur.ChecklistItems = append(cur.ChecklistItems, it)
		return nil
	})
}

// ToggleChecklistItem flips the checked flag of one item.
func (s *Store) ToggleChecklistItem(tripID, itemID string) error {
	return s.mutate(tripID, false, func(cur *domain.Payload) error {
		for i := range cur.ChecklistItems {
			if cur.ChecklistItems[i].ID == itemID {
				cur.ChecklistItems[i].Checked = !cur.ChecklistItems[i].Checked
				return nil
			}
		}
		return fmt.Errorf("checklist item %s: %w", itemID, domain.ErrNotFound)
	})
}

// SetExchangeRate stores the rate of currency against the trip's base currency.
// A rate of zero removes the currency.
func (s *Store) SetExchangeRate(tripID, currency string, rate float64) error {
	if rate < 0 {
		return fmt.Errorf("tripstore.SetExchangeRate: %w: rate must not be negative", domain.ErrValidation)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	return s.mutate(tripID, false, func(cur *domain.Payload) error {
		if rate == 0 {
			delete(cur.ExchangeRates, currency)
			return nil
		}
		if cur.ExchangeRates == nil {
			cur.ExchangeRates = make(map[string]float64)
		}
		cur.ExchangeRates[currency] = rate
		return nil
	})
}

// mutate applies fn to a copy of the trip's payload under the lock and
// commits it when fn succeeds. create allows mutating a trip that does not
// exist yet.
func (s *Store) mutate(tripID string, create bool, fn func(*domain.Payload) error) error {
	s.mu.Lock()
	cur, ok := s.trips[tripID]
	if !ok && !create {
		s.mu.Unlock()
		return fmt.Errorf("tripstore %s: %w", tripID, ErrTripNotFound)
	}
	next := clonePayload(cur)
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("tripstore %s: %w", tripID, err)
	}
	next.Trip.ID = tripID
	s.trips[tripID] = next
	obs := s.snapshotObservers()
	s.mu.Unlock()

	notify(obs, tripID)
	return nil
}

// snapshotObservers copies the observer set. Callers hold s.mu.
func (s *Store) snapshotObservers() []func(string) {
	out := make([]func(string), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func notify(obs []func(string), tripID string) {
	for _, fn := range obs {
		fn(tripID)
	}
}

func hasCategory(cats []domain.ChecklistCategory, id string) bool {
	for _, c := range cats {
		if c.ID == id {
			return true
		}
	}
	return false
}

// clonePayload deep-copies every slice and map so stored state never aliases
// caller-owned memory.
func clonePayload(p domain.Payload) domain.Payload {
	out := p
	out.Schedules = append([]domain.Schedule(nil), p.Schedules...)
	out.DayInfos = append([]domain.DayInfo(nil), p.DayInfos...)
	out.ChecklistCategories = append([]domain.ChecklistCategory(nil), p.ChecklistCategories...)
	out.ChecklistItems = append([]domain.ChecklistItem(nil), p.ChecklistItems...)
	if p.ExchangeRates != nil {
		out.ExchangeRates = make(map[string]float64, len(p.ExchangeRates))
		for k, v := range p.ExchangeRates {
			out.ExchangeRates[k] = v
		}
	}
	return out
}

// SaveFile writes one trip's payload to path as indented JSON, replacing the
// file atomically.
func (s *Store) SaveFile(tripID, path string) error {
	p, err := s.Export(tripID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("tripstore.SaveFile: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".trip-*.json")
	if err != nil {
		return fmt.Errorf("tripstore.SaveFile: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("tripstore.SaveFile: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tripstore.SaveFile: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("tripstore.SaveFile: rename: %w", err)
	}
	return nil
}

// LoadFile reads a payload written by SaveFile and replaces the trip with it.
// It returns the loaded trip id.
func (s *Store) LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("tripstore.LoadFile: %w", err)
	}
	var p domain.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("tripstore.LoadFile: %w: %v", domain.ErrValidation, err)
	}
	if !p.Supported() {
		return "", fmt.Errorf("tripstore.LoadFile: %w: payload version %d is newer than %d", domain.ErrValidation, p.Version, domain.PayloadVersion)
	}
	if err := s.Replace(p); err != nil {
		return "", err
	}
	return p.Trip.ID, nil
}
