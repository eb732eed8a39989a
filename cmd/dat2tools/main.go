// Package main provides a command-line tool for working with DAT2 archives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/EchoTools/dat2FileTools/pkg/dat2"
	"github.com/EchoTools/dat2FileTools/pkg/layout"
)

var (
	mode           string
	archivePath    string
	inputDir       string
	outputDir      string
	configPath     string
	listFormat     string
	treeSize       string
	filter         string
	workers        int
	compress       bool
	forceOverwrite bool
	verbose        bool
)

// errPartial signals that some entries failed while the rest were extracted.
var errPartial = errors.New("some entries failed")

func init() {
	flag.StringVar(&mode, "mode", "", "Operation mode: list, info, extract, build")
	flag.StringVar(&archivePath, "archive", "", "Path to the .dat archive to read or create")
	flag.StringVar(&inputDir, "input", "", "Input directory for build mode")
	flag.StringVar(&outputDir, "output", "", "Output directory for extract mode")
	flag.StringVar(&configPath, "config", "", "YAML file with default flag values")
	flag.StringVar(&listFormat, "format", "text", "Listing format: text, yaml")
	flag.StringVar(&treeSize, "tree-size", "self", "tree_size convention: self (counts its own field) or count (Fallout 2)")
	flag.StringVar(&filter, "filter", "", "Only extract entries matching this glob (e.g. 'text/*')")
	flag.IntVar(&workers, "workers", 0, "Parallel workers for extract and build (0 = GOMAXPROCS)")
	flag.BoolVar(&compress, "compress", true, "Compress files with zlib when building")
	flag.BoolVar(&forceOverwrite, "force", false, "Allow non-empty output directory or existing archive")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
}

func main() {
	flag.Parse()

	err := run()
	switch {
	case errors.Is(err, errPartial):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if configPath != "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		applyConfig(flag.CommandLine, cfg)
	}

	if err := validateFlags(); err != nil {
		flag.Usage()
		return err
	}

	conv, err := dat2.ParseTreeSizeConvention(treeSize)
	if err != nil {
		return err
	}
	opts := []dat2.Option{dat2.WithTreeSizeConvention(conv)}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch mode {
	case "list":
		return runList(os.Stdout, opts)
	case "info":
		return runInfo(os.Stdout, opts)
	case "extract":
		if err := prepareOutputDir(); err != nil {
			return err
		}
		return runExtract(ctx, logger, opts)
	case "build":
		return runBuild(ctx, logger, opts)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func validateFlags() error {
	if mode == "" {
		return fmt.Errorf("mode is required")
	}
	if archivePath == "" {
		return fmt.Errorf("archive path is required")
	}

	switch mode {
	case "list":
		if listFormat != "text" && listFormat != "yaml" {
			return fmt.Errorf("format must be 'text' or 'yaml'")
		}
	case "info":
	case "extract":
		if outputDir == "" {
			return fmt.Errorf("extract mode requires -output")
		}
	case "build":
		if inputDir == "" {
			return fmt.Errorf("build mode requires -input")
		}
		if !forceOverwrite {
			if _, err := os.Stat(archivePath); err == nil {
				return fmt.Errorf("archive %s already exists (use -force to override)", archivePath)
			}
		}
	default:
		return fmt.Errorf("mode must be 'list', 'info', 'extract' or 'build'")
	}

	return nil
}

func prepareOutputDir() error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if !forceOverwrite {
		empty, err := isDirEmpty(outputDir)
		if err != nil {
			return fmt.Errorf("check output directory: %w", err)
		}
		if !empty {
			return fmt.Errorf("output directory is not empty (use -force to override)")
		}
	}

	return nil
}

func isDirEmpty(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdir(1)
	return err == io.EOF, nil
}

// listing is one row of list output.
type listing struct {
	Name               string `yaml:"name"`
	DecompressedSize   uint32 `yaml:"decompressed_size"`
	PackedSize         uint32 `yaml:"packed_size"`
	DeclaredCompressed bool   `yaml:"declared_compressed"`
}

func runList(w io.Writer, opts []dat2.Option) error {
	a, err := dat2.OpenFile(archivePath, opts...)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	entries := a.List()
	rows := make([]listing, len(entries))
	for i, e := range entries {
		rows[i] = listing{
			Name:               e.Name,
			DecompressedSize:   e.DecompressedSize,
			PackedSize:         e.PackedSize,
			DeclaredCompressed: e.IsDeclaredCompressed(),
		}
	}

	if listFormat == "yaml" {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encode listing: %w", err)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "SIZE\tPACKED\t\tNAME\n")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t\t%s\n", r.DecompressedSize, r.PackedSize, r.Name)
	}
	return tw.Flush()
}

func runInfo(w io.Writer, opts []dat2.Option) error {
	a, err := dat2.OpenFile(archivePath, opts...)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	var packed, declared uint64
	compressed := 0
	for _, e := range a.List() {
		packed += uint64(e.PackedSize)
		declared += uint64(e.DecompressedSize)
		if dat2.IsCompressed(a.Raw(e)) {
			compressed++
		}
	}

	t := a.Trailer()
	fmt.Fprintf(w, "Entries:     %d (%d duplicates hidden)\n", a.Len(), a.Duplicates())
	fmt.Fprintf(w, "Compressed:  %d\n", compressed)
	fmt.Fprintf(w, "Data:        %d bytes\n", a.DataLen())
	fmt.Fprintf(w, "Packed:      %d bytes\n", packed)
	fmt.Fprintf(w, "Declared:    %d bytes\n", declared)
	fmt.Fprintf(w, "tree_size:   %d\n", t.TreeSize)
	fmt.Fprintf(w, "file_size:   %d\n", t.FileSize)
	return nil
}

func runExtract(ctx context.Context, logger *slog.Logger, opts []dat2.Option) error {
	a, err := dat2.OpenFile(archivePath, opts...)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	fmt.Printf("Archive loaded: %d files (%d duplicates hidden)\n", a.Len(), a.Duplicates())

	fmt.Println("Extracting files...")
	report, err := layout.Extract(ctx, a, outputDir,
		layout.WithWorkers(workers),
		layout.WithFilter(filter),
		layout.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	fmt.Printf("Extracted %d files (%d bytes) to %s\n", report.Written, report.Bytes, outputDir)
	if report.SizeMismatches > 0 {
		fmt.Printf("Warning: %d files did not match their declared size\n", report.SizeMismatches)
	}
	if len(report.Failed) > 0 {
		for _, f := range report.Failed {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", f.Name, f.Err)
		}
		return fmt.Errorf("%w: %d of %d", errPartial, len(report.Failed), a.Len()-report.Skipped)
	}
	return nil
}

func runBuild(ctx context.Context, logger *slog.Logger, opts []dat2.Option) error {
	fmt.Println("Scanning input directory...")
	files, err := layout.ScanFiles(inputDir)
	if err != nil {
		return fmt.Errorf("scan files: %w", err)
	}
	fmt.Printf("Found %d files\n", len(files))

	inputs, err := layout.LoadInputs(ctx, files,
		layout.WithWorkers(workers),
		layout.WithCompression(compress),
		layout.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("load files: %w", err)
	}

	fmt.Println("Building archive...")
	n, err := layout.BuildFile(archivePath, inputs, opts...)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	fmt.Printf("Build complete. %d bytes written to %s\n", n, archivePath)
	return nil
}
