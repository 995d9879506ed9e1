package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
)

var namePattern, _ = regexp.Compile("^[0-9a-zA-Z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func RouterConfigValidator(cfg *RouterCfg) error {
	err := NameValidator(cfg.Id)
	if err != nil {
		return err
	}
	err = NameValidator(cfg.Area)
	if err != nil {
		return fmt.Errorf("area: %w", err)
	}
	if cfg.Mode != ModeInterior && cfg.Mode != ModeStandalone {
		return fmt.Errorf("%s is not a valid router mode", cfg.Mode)
	}
	if cfg.DiagnosticHoldDown < 0 {
		return fmt.Errorf("diagnostic_hold_down must not be negative")
	}
	if cfg.LogPath != "" {
		if err := PathValidator(cfg.LogPath); err != nil {
			return fmt.Errorf("log_path: %w", err)
		}
	}
	prefixes := make([]string, 0)
	for _, a := range cfg.Addresses {
		if a.Prefix == "" {
			return fmt.Errorf("address prefix must not be empty")
		}
		if slices.Contains(prefixes, a.Prefix) {
			return fmt.Errorf("duplicate address prefix: %s", a.Prefix)
		}
		if _, ok := treatmentNames[a.Distribution]; !ok {
			return fmt.Errorf("address %s has an invalid distribution", a.Prefix)
		}
		prefixes = append(prefixes, a.Prefix)
	}
	return nil
}
