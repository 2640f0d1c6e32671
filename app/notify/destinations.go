package notify

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DestinationTable maps destination identifiers to webhook URLs, loaded
// from a yaml file:
//
//	destinations:
//	  "general": https://discord.com/api/webhooks/...
//	  "alerts":  https://discord.com/api/webhooks/...
type DestinationTable struct {
	urls map[string]string
}

type destinationsFile struct {
	Destinations map[string]string `yaml:"destinations"`
}

func LoadDestinations(path string) (*DestinationTable, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Warn("Destinations file not found, no webhooks configured", "path", path)
		return &DestinationTable{urls: map[string]string{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read destinations file: %w", err)
	}

	var parsed destinationsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse destinations file: %w", err)
	}

	for id, url := range parsed.Destinations {
		if url == "" {
			return nil, fmt.Errorf("destination %q has an empty webhook URL", id)
		}
	}

	if parsed.Destinations == nil {
		parsed.Destinations = map[string]string{}
	}

	return &DestinationTable{urls: parsed.Destinations}, nil
}

func (t *DestinationTable) URL(destination string) (string, bool) {
	url, ok := t.urls[destination]
	return url, ok
}

func (t *DestinationTable) Count() int {
	return len(t.urls)
}
