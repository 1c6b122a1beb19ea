package config

const (
	defaultLibraryDir    = "~/music"
	defaultCollectionDir = "~/music/converted"
	defaultLogDir        = "~/.local/share/resound/logs"
	defaultStateDir      = "~/.local/share/resound/state"

	defaultTargetFormat = "opus"
	defaultBitrateKbps  = 128

	defaultMaxConcurrent      = 3
	defaultAdmissionPollMS    = 200
	defaultPacingBatchSize    = 10
	defaultPacingPauseMS      = 50
	defaultSnapshotDebounceMS = 100

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// DestinationNextToSource places converted files beside their originals.
const DestinationNextToSource = "next_to_source"

// DestinationCollection places converted files under paths.collection_dir.
const DestinationCollection = "collection"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:    defaultLibraryDir,
			CollectionDir: defaultCollectionDir,
			LogDir:        defaultLogDir,
			StateDir:      defaultStateDir,
		},
		Conversion: Conversion{
			TargetFormat: defaultTargetFormat,
			BitrateKbps:  defaultBitrateKbps,
			Destination:  DestinationNextToSource,
		},
		Scheduler: Scheduler{
			MaxConcurrent:      defaultMaxConcurrent,
			AdmissionPollMS:    defaultAdmissionPollMS,
			PacingBatchSize:    defaultPacingBatchSize,
			PacingPauseMS:      defaultPacingPauseMS,
			SnapshotDebounceMS: defaultSnapshotDebounceMS,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Batch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
