package encoding

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resound/internal/config"
)

// Policy captures the per-job conversion policy passed in at submission time.
// The scheduler never stores it; it travels with the job spec.
type Policy struct {
	DeleteOriginal bool
	Destination    string
}

// PolicyFromConfig derives the default submission policy from configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		DeleteOriginal: cfg.Conversion.DeleteOriginal,
		Destination:    cfg.Conversion.Destination,
	}
}

// ResolveOutput computes the destination path for a converted file.
//
// next_to_source keeps the converted file beside the original with the target
// extension. collection mirrors the file's position under the library root
// into the collection directory, falling back to a flat layout for files
// outside the library.
func ResolveOutput(sourcePath, format string, policy Policy, cfg *config.Config) (string, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return "", fmt.Errorf("source path required")
	}
	ext := "." + strings.ToLower(strings.TrimSpace(format))
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	switch policy.Destination {
	case config.DestinationCollection:
		rel, err := filepath.Rel(cfg.Paths.LibraryDir, sourcePath)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = base
		}
		rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ext
		return filepath.Join(cfg.Paths.CollectionDir, rel), nil
	default:
		return filepath.Join(filepath.Dir(sourcePath), stem+ext), nil
	}
}

// Finalize applies post-encode policy: removing the original when requested.
// Removal failures are reported so the reconciler can attach them to the file
// without failing the conversion itself.
func Finalize(sourcePath, outputPath string, policy Policy) error {
	if !policy.DeleteOriginal {
		return nil
	}
	if sourcePath == outputPath {
		return nil
	}
	if err := os.Remove(sourcePath); err != nil {
		return fmt.Errorf("remove original: %w", err)
	}
	return nil
}
