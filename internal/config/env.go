package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FIELDCLOCK_"

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overlays FIELDCLOCK_* variables onto cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *FileConfig, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	strs := []struct {
		key    string
		target **string
	}{
		{"BASE_URL", &cfg.Endpoints.BaseURL},
		{"TECHNICIANS_URL", &cfg.Endpoints.Technicians},
		{"CLOCK_URL", &cfg.Endpoints.Clock},
		{"STATUS_URL", &cfg.Endpoints.Status},
		{"MILEAGE_URL", &cfg.Endpoints.Mileage},
		{"HISTORY_URL", &cfg.Endpoints.History},
		{"EDIT_URL", &cfg.Endpoints.Edit},
		{"DEBOUNCE", &cfg.Session.Debounce},
	}
	for _, s := range strs {
		if v, ok := lookupTrimmed(lookup, s.key); ok {
			value := v
			*s.target = &value
		}
	}

	ints := []struct {
		key    string
		target **int
	}{
		{"DEBOUNCE_MS", &cfg.Session.DebounceMs},
		{"SUCCESS_TOAST_MS", &cfg.Session.SuccessToastMs},
		{"ERROR_TOAST_MS", &cfg.Session.ErrorToastMs},
		{"HISTORY_DAYS", &cfg.Session.HistoryDays},
		{"TIMEOUT_MS", &cfg.Session.TimeoutMs},
	}
	for _, i := range ints {
		v, ok := lookupTrimmed(lookup, i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, i.key, err)
		}
		*i.target = &n
	}
	return nil
}

func lookupTrimmed(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}
