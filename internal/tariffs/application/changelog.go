package application

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	tariffs "optifactura/internal/tariffs/domain"
)

// ChangeLog is an append-only record of significant tariff changes,
// one JSON file per detection date under the storage root. It is audit
// material for downstream notification collaborators and never gates
// ingestion.
type ChangeLog struct {
	mu   sync.Mutex
	root string
}

// NewChangeLog constructs a change log rooted at dir.
func NewChangeLog(root string) (*ChangeLog, error) {
	if root == "" {
		return nil, errors.New("change log: empty root")
	}
	if err := os.MkdirAll(filepath.Join(root, "changes"), 0o755); err != nil {
		return nil, err
	}
	return &ChangeLog{root: root}, nil
}

// Append adds events to the log file of their detection date.
func (l *ChangeLog) Append(events []tariffs.TariffChangeEvent) error {
	if l == nil {
		return errors.New("change log: nil")
	}
	if len(events) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	byDate := make(map[string][]tariffs.TariffChangeEvent)
	for _, event := range events {
		date := event.DetectedAt.UTC().Format("2006-01-02")
		byDate[date] = append(byDate[date], event)
	}

	for date, dayEvents := range byDate {
		path := filepath.Join(l.root, "changes", date+".json")
		existing, err := readEvents(path)
		if err != nil {
			return err
		}
		existing = append(existing, dayEvents...)
		data, err := json.MarshalIndent(existing, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the events logged for a date (YYYY-MM-DD).
func (l *ChangeLog) Read(date string) ([]tariffs.TariffChangeEvent, error) {
	if l == nil {
		return nil, errors.New("change log: nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return readEvents(filepath.Join(l.root, "changes", date+".json"))
}

func readEvents(path string) ([]tariffs.TariffChangeEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var events []tariffs.TariffChangeEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}
