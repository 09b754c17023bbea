package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ClientConfig holds the configuration of the tripsync command-line client.
type ClientConfig struct {
	// ServiceURL is the base URL of the share service. Required.
	ServiceURL string

	// Link is the share link to join. Empty means share the trip in TripFile
	// and print a new link.
	Link string

	// LinkBase is the base URL new share links are built from. Defaults to
	// ServiceURL.
	LinkBase string

	// TripFile is the local JSON file the shared trip is mirrored to.
	TripFile string

	// KeysFile persists the client id and per-share cached values.
	KeysFile string

	// Name and Password answer the access prompts without asking.
	Name     string
	Password string

	// LogLevel defaults to "warn" so logs do not drown the event output.
	LogLevel string

	// Debounce is the push coalescing window.
	Debounce time.Duration
}

// LoadClient reads the client configuration from TRIPSYNC_* variables.
func LoadClient() (ClientConfig, error) {
	cfg := ClientConfig{
		ServiceURL: strings.TrimRight(os.Getenv("SHARE_SERVICE_URL"), "/"),
		Link:       os.Getenv("TRIPSYNC_LINK"),
		TripFile:   getEnv("TRIPSYNC_TRIP_FILE", "trip.json"),
		KeysFile:   getEnv("TRIPSYNC_KEYS_FILE", ".tripsync/keys.json"),
		Name:       os.Getenv("TRIPSYNC_NAME"),
		Password:   os.Getenv("TRIPSYNC_PASSWORD"),
		LogLevel:   getEnv("LOG_LEVEL", "warn"),
	}
	cfg.LinkBase = getEnv("TRIPSYNC_LINK_BASE", cfg.ServiceURL)

	var missing, invalid []string
	if cfg.ServiceURL == "" {
		missing = append(missing, "SHARE_SERVICE_URL")
	}
	var err error
	if cfg.Debounce, err = getDuration("TRIPSYNC_DEBOUNCE", 100*time.Millisecond); err != nil {
		invalid = append(invalid, "TRIPSYNC_DEBOUNCE")
	}

	if len(missing) > 0 {
		return ClientConfig{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return ClientConfig{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}
