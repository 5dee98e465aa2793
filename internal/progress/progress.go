package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type CityProgress struct {
	City      string    `json:"city"`
	Status    string    `json:"status"`
	Places    int       `json:"places"`
	RunID     string    `json:"run_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// Tracker records per-city status in a JSON file so an interrupted run can resume.
type Tracker struct {
	mu       sync.RWMutex
	cities   map[string]*CityProgress
	filename string
	now      func() time.Time
}

func NewTracker(filename string) (*Tracker, error) {
	t := &Tracker{
		cities:   make(map[string]*CityProgress),
		filename: filename,
		now:      time.Now,
	}

	if err := t.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	return t, nil
}

// Register marks cities as pending unless they already have a status.
func (t *Tracker) Register(cities []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, city := range cities {
		if city == "" {
			continue
		}
		if _, exists := t.cities[city]; exists {
			continue
		}
		t.cities[city] = &CityProgress{
			City:      city,
			Status:    StatusPending,
			UpdatedAt: t.now(),
		}
	}

	return t.save()
}

func (t *Tracker) MarkCompleted(city, runID string, places int) error {
	return t.update(city, func(p *CityProgress) {
		p.Status = StatusCompleted
		p.Places = places
		p.RunID = runID
		p.Error = ""
	})
}

func (t *Tracker) MarkFailed(city, runID string, cause error) error {
	return t.update(city, func(p *CityProgress) {
		p.Status = StatusFailed
		p.RunID = runID
		if cause != nil {
			p.Error = cause.Error()
		}
	})
}

func (t *Tracker) update(city string, fn func(*CityProgress)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, exists := t.cities[city]
	if !exists {
		p = &CityProgress{City: city}
		t.cities[city] = p
	}

	fn(p)
	p.UpdatedAt = t.now()

	return t.save()
}

func (t *Tracker) Get(city string) (CityProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, exists := t.cities[city]
	if !exists {
		return CityProgress{}, false
	}
	return *p, true
}

func (t *Tracker) IsCompleted(city string) bool {
	p, ok := t.Get(city)
	return ok && p.Status == StatusCompleted
}

// Remaining filters cities down to those not yet completed, keeping order.
func (t *Tracker) Remaining(cities []string) []string {
	var out []string
	for _, city := range cities {
		if !t.IsCompleted(city) {
			out = append(out, city)
		}
	}
	return out
}

func (t *Tracker) Failed() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var failed []string
	for city, p := range t.cities {
		if p.Status == StatusFailed {
			failed = append(failed, city)
		}
	}
	sort.Strings(failed)
	return failed
}

func (t *Tracker) Stats() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := make(map[string]int)
	for _, p := range t.cities {
		stats[p.Status]++
	}
	stats["total"] = len(t.cities)
	return stats
}

func (t *Tracker) save() error {
	data, err := json.MarshalIndent(t.cities, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(t.filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	// Write to temp file first, then rename over the checkpoint
	tmpFile := t.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpFile, t.filename)
}

func (t *Tracker) Load() error {
	data, err := os.ReadFile(t.filename)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cities := make(map[string]*CityProgress)
	if err := json.Unmarshal(data, &cities); err != nil {
		return err
	}
	if cities == nil {
		cities = make(map[string]*CityProgress)
	}
	t.cities = cities
	return nil
}
