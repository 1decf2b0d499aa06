package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/schedule"
	"braidsbar/queue-service/internal/validation"

	"gopkg.in/yaml.v3"
)

type HoursEntry struct {
	Open  string `yaml:"open" validate:"required"`
	Close string `yaml:"close" validate:"required"`
}

// Catalogue is the YAML file holding weekly hours and seed styles and stock.
type Catalogue struct {
	Hours     map[string]HoursEntry  `yaml:"hours" validate:"dive"`
	Styles    []models.Style         `yaml:"styles" validate:"dive"`
	Inventory []models.InventoryItem `yaml:"inventory" validate:"dive"`
}

var weekdays = map[string]int{
	"sunday":    0,
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
}

// LoadCatalogue reads path. A missing file at the default path yields an
// empty catalogue with default hours; a missing explicit path is an error.
func LoadCatalogue(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultCataloguePath {
			return Catalogue{}, nil
		}
		return Catalogue{}, fmt.Errorf("failed to read catalogue: %w", err)
	}
	return ParseCatalogue(data)
}

func ParseCatalogue(data []byte) (Catalogue, error) {
	var catalogue Catalogue
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return Catalogue{}, fmt.Errorf("failed to unmarshal catalogue: %w", err)
	}
	if err := validation.New().Struct(catalogue); err != nil {
		return Catalogue{}, fmt.Errorf("catalogue validation failed: %w", err)
	}
	if _, err := catalogue.Week(); err != nil {
		return Catalogue{}, err
	}
	return catalogue, nil
}

// Week overlays the configured hours on the default week.
func (c Catalogue) Week() ([7]schedule.Hours, error) {
	week := schedule.DefaultWeek()
	for name, entry := range c.Hours {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return week, fmt.Errorf("unknown weekday %q", name)
		}
		open, err := schedule.ParseTimeOfDay(entry.Open)
		if err != nil {
			return week, fmt.Errorf("%s open: %w", name, err)
		}
		closing, err := schedule.ParseTimeOfDay(entry.Close)
		if err != nil {
			return week, fmt.Errorf("%s close: %w", name, err)
		}
		if closing <= open {
			return week, fmt.Errorf("%s closes at %s before opening at %s", name, closing, open)
		}
		week[day] = schedule.Hours{Open: open, Close: closing}
	}
	return week, nil
}
