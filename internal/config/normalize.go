package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConversion()
	c.normalizeScheduler()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CollectionDir) == "" {
		c.Paths.CollectionDir = defaultCollectionDir
	}
	if c.Paths.CollectionDir, err = expandPath(c.Paths.CollectionDir); err != nil {
		return fmt.Errorf("paths.collection_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConversion() {
	c.Conversion.TargetFormat = strings.ToLower(strings.TrimSpace(c.Conversion.TargetFormat))
	if c.Conversion.TargetFormat == "" {
		c.Conversion.TargetFormat = defaultTargetFormat
	}
	c.Conversion.Destination = strings.ToLower(strings.TrimSpace(c.Conversion.Destination))
	if c.Conversion.Destination == "" {
		c.Conversion.Destination = DestinationNextToSource
	}
	if c.Conversion.BitrateKbps <= 0 {
		c.Conversion.BitrateKbps = defaultBitrateKbps
	}
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.MaxConcurrent <= 0 {
		c.Scheduler.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Scheduler.AdmissionPollMS <= 0 {
		c.Scheduler.AdmissionPollMS = defaultAdmissionPollMS
	}
	if c.Scheduler.PacingBatchSize <= 0 {
		c.Scheduler.PacingBatchSize = defaultPacingBatchSize
	}
	if c.Scheduler.PacingPauseMS < 0 {
		c.Scheduler.PacingPauseMS = defaultPacingPauseMS
	}
	if c.Scheduler.SnapshotDebounceMS <= 0 {
		c.Scheduler.SnapshotDebounceMS = defaultSnapshotDebounceMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
