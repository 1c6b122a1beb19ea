// Package scanner discovers audio files under the configured library roots
// and turns them into conversion candidates. A candidate carries a
// needs-conversion flag derived from the target format and the history
// catalog, so callers can show skipped files without resubmitting them.
package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"resound/internal/config"
	"resound/internal/logging"
	"resound/internal/scheduler"
	"resound/internal/services"
)

// audioExtensions lists the source formats the scanner recognizes.
var audioExtensions = map[string]struct{}{
	".aac":  {},
	".aiff": {},
	".alac": {},
	".flac": {},
	".m4a":  {},
	".mp3":  {},
	".ogg":  {},
	".opus": {},
	".wav":  {},
	".wma":  {},
}

// ConvertedLookup reports source paths with a recorded successful conversion.
// It is satisfied by *catalog.Store.
type ConvertedLookup interface {
	ConvertedSet(ctx context.Context) (map[string]struct{}, error)
}

// Scanner walks library roots and produces ordered conversion candidates.
type Scanner struct {
	cfg     *config.Config
	catalog ConvertedLookup
	logger  *slog.Logger
	coll    *collate.Collator
}

// New wires a scanner. catalog may be nil when no history is kept; every
// discovered file then counts as needing conversion.
func New(cfg *config.Config, cat ConvertedLookup, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:     cfg,
		catalog: cat,
		logger:  logging.NewComponentLogger(logger, "scanner"),
		// Numeric collation keeps "track 2" ahead of "track 10".
		coll: collate.New(language.Und, collate.Numeric, collate.IgnoreCase),
	}
}

// Scan walks the given roots, defaulting to the configured library directory,
// and returns every recognized audio file in collated path order.
func (s *Scanner) Scan(ctx context.Context, roots ...string) ([]scheduler.Candidate, error) {
	if len(roots) == 0 {
		roots = []string{s.cfg.Paths.LibraryDir}
	}

	converted, err := s.convertedSet(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []scheduler.Candidate
	seen := make(map[string]struct{})
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "scanner", "scan", "resolve root", err)
		}
		info, err := os.Stat(absRoot)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "scanner", "scan", "library root "+absRoot, err)
		}
		if !info.IsDir() {
			cand, ok := s.candidateFor(absRoot, converted)
			if !ok {
				return nil, services.Wrap(services.ErrValidation, "scanner", "scan", absRoot+" is not a recognized audio file", nil)
			}
			if _, dup := seen[cand.ID]; !dup {
				seen[cand.ID] = struct{}{}
				candidates = append(candidates, cand)
			}
			continue
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if entry.IsDir() {
				if strings.HasPrefix(entry.Name(), ".") && path != absRoot {
					return filepath.SkipDir
				}
				return nil
			}
			cand, ok := s.candidateFor(path, converted)
			if !ok {
				return nil
			}
			if _, dup := seen[cand.ID]; dup {
				return nil
			}
			seen[cand.ID] = struct{}{}
			candidates = append(candidates, cand)
			return nil
		})
		if walkErr != nil {
			return nil, services.Wrap(nil, "scanner", "scan", "walk "+absRoot, walkErr)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return s.coll.CompareString(candidates[i].Path, candidates[j].Path) < 0
	})

	s.logger.DebugContext(ctx, "scan complete",
		logging.Int("roots", len(roots)),
		logging.Int("candidates", len(candidates)))
	return candidates, nil
}

// Candidate resolves a single explicit path into a conversion candidate.
func (s *Scanner) Candidate(ctx context.Context, path string) (scheduler.Candidate, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return scheduler.Candidate{}, services.Wrap(services.ErrValidation, "scanner", "candidate", "resolve path", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return scheduler.Candidate{}, services.Wrap(services.ErrNotFound, "scanner", "candidate", abs, err)
	}
	converted, err := s.convertedSet(ctx)
	if err != nil {
		return scheduler.Candidate{}, err
	}
	cand, ok := s.candidateFor(abs, converted)
	if !ok {
		return scheduler.Candidate{}, services.Wrap(services.ErrValidation, "scanner", "candidate", abs+" is not a recognized audio file", nil)
	}
	return cand, nil
}

func (s *Scanner) convertedSet(ctx context.Context) (map[string]struct{}, error) {
	if s.catalog == nil {
		return nil, nil
	}
	converted, err := s.catalog.ConvertedSet(ctx)
	if err != nil {
		return nil, services.Wrap(nil, "scanner", "scan", "load conversion history", err)
	}
	return converted, nil
}

func (s *Scanner) candidateFor(path string, converted map[string]struct{}) (scheduler.Candidate, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := audioExtensions[ext]; !ok {
		return scheduler.Candidate{}, false
	}
	target := "." + strings.ToLower(s.cfg.Conversion.TargetFormat)
	needs := ext != target
	if needs {
		if _, done := converted[path]; done {
			needs = false
		}
	}
	return scheduler.Candidate{ID: path, Path: path, NeedsConversion: needs}, true
}
