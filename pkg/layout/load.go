package layout

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/EchoTools/dat2FileTools/pkg/dat2"
)

// LoadInputs reads files, deflating them in parallel when compression is
// enabled. The returned inputs keep the order of files.
func LoadInputs(ctx context.Context, files []ScannedFile, opts ...Option) ([]dat2.Input, error) {
	cfg := newConfig(opts)
	inputs := make([]dat2.Input, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.workers)

	for i, file := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			raw, err := os.ReadFile(file.Path)
			if err != nil {
				return fmt.Errorf("read file %s: %w", file.Name, err)
			}

			in, err := dat2.NewInput(file.Name, raw, cfg.compress)
			if err != nil {
				return err
			}
			inputs[i] = in

			cfg.logger.Debug("loaded file",
				slog.String("name", file.Name),
				slog.Int("size", len(raw)),
				slog.Int("packed", len(in.Data)),
				slog.Bool("compressed", in.Compressed))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// BuildFile writes an archive of inputs to path.
func BuildFile(path string, inputs []dat2.Input, opts ...dat2.Option) (int64, error) {
	w := dat2.NewWriter(opts...)
	for _, in := range inputs {
		if _, err := w.Add(in); err != nil {
			return 0, fmt.Errorf("add %s: %w", in.Name, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	n, err := w.WriteTo(f)
	if err != nil {
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close archive: %w", err)
	}
	return n, nil
}
