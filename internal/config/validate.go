package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedTargetFormats = map[string]struct{}{
	"opus": {},
	"flac": {},
	"mp3":  {},
	"m4a":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	return nil
}

func (c *Config) validateConversion() error {
	if _, ok := supportedTargetFormats[c.Conversion.TargetFormat]; !ok {
		return fmt.Errorf("conversion.target_format: unsupported value %q", c.Conversion.TargetFormat)
	}
	switch c.Conversion.Destination {
	case DestinationNextToSource:
	case DestinationCollection:
		if strings.TrimSpace(c.Paths.CollectionDir) == "" {
			return errors.New("paths.collection_dir must be set when conversion.destination is \"collection\"")
		}
	default:
		return fmt.Errorf("conversion.destination: unsupported value %q", c.Conversion.Destination)
	}
	if c.Conversion.BitrateKbps < 8 || c.Conversion.BitrateKbps > 1024 {
		return errors.New("conversion.bitrate_kbps must be between 8 and 1024")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.MaxConcurrent > 64 {
		return errors.New("scheduler.max_concurrent must not exceed 64")
	}
	if c.Scheduler.AdmissionPollMS > 10_000 {
		return errors.New("scheduler.admission_poll_ms must not exceed 10000")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
