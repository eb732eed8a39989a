package layout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/EchoTools/dat2FileTools/pkg/dat2"
)

var (
	// ErrUnsafePath is returned for entry names that would land outside the output directory.
	ErrUnsafePath = errors.New("unsafe entry path")

	// ErrPathCollision is returned for an entry whose output file was already
	// claimed by an earlier entry, such as A/B after A\B.
	ErrPathCollision = errors.New("entry path collision")
)

// Failure records an entry that could not be extracted.
type Failure struct {
	Name string
	Err  error
}

// Report summarizes an extraction.
type Report struct {
	Written        int
	Bytes          int64
	Skipped        int // filtered out
	SizeMismatches int
	Failed         []Failure
}

// Extract writes every listed entry of a under outputDir. Failures of single
// entries are collected in the report and do not stop the run; the returned
// error is reserved for cancellation and invalid options.
func Extract(ctx context.Context, a *dat2.Archive, outputDir string, opts ...Option) (*Report, error) {
	cfg := newConfig(opts)
	if cfg.filter != "" {
		if _, err := path.Match(cfg.filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", cfg.filter, err)
		}
	}

	var (
		mu          sync.Mutex
		report      = &Report{}
		createdDirs = make(map[string]struct{})
		claimed     = make(map[string]string) // target -> entry name
	)

	fail := func(name string, err error) {
		cfg.logger.Warn("extract failed", slog.String("name", name), slog.Any("error", err))
		mu.Lock()
		report.Failed = append(report.Failed, Failure{Name: name, Err: err})
		mu.Unlock()
	}

	ensureDir := func(dir string) error {
		mu.Lock()
		defer mu.Unlock()
		if _, exists := createdDirs[dir]; exists {
			return nil
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		createdDirs[dir] = struct{}{}
		return nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.workers)

	for _, e := range a.List() {
		if err := gctx.Err(); err != nil {
			break
		}

		rel := e.Path()
		if cfg.filter != "" {
			if ok, _ := path.Match(cfg.filter, rel); !ok {
				report.Skipped++
				continue
			}
		}

		local := filepath.FromSlash(rel)
		if !filepath.IsLocal(local) {
			fail(e.Name, fmt.Errorf("%w: %s", ErrUnsafePath, e.Name))
			continue
		}

		// Claimed in on-disk order, so the earlier entry always wins.
		target := filepath.Join(outputDir, local)
		mu.Lock()
		owner, taken := claimed[target]
		if !taken {
			claimed[target] = e.Name
		}
		mu.Unlock()
		if taken {
			fail(e.Name, fmt.Errorf("%w: %s maps to the same file as %s", ErrPathCollision, e.Name, owner))
			continue
		}

		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			data, err := a.ExtractEntry(e)
			if err != nil {
				fail(e.Name, err)
				return nil
			}

			mismatch := e.SizeMismatch(len(data))
			if mismatch {
				cfg.logger.Warn("declared size disagrees",
					slog.String("name", e.Name),
					slog.Uint64("declared", uint64(e.DecompressedSize)),
					slog.Int("actual", len(data)))
			}

			if err := ensureDir(filepath.Dir(target)); err != nil {
				fail(e.Name, fmt.Errorf("create dir: %w", err))
				return nil
			}
			if err := os.WriteFile(target, data, 0644); err != nil {
				fail(e.Name, fmt.Errorf("write file: %w", err))
				return nil
			}

			cfg.logger.Debug("extracted", slog.String("name", e.Name), slog.Int("size", len(data)))

			mu.Lock()
			report.Written++
			report.Bytes += int64(len(data))
			if mismatch {
				report.SizeMismatches++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
