// Command sizefit re-encodes images to fit a byte budget at the highest
// attainable fidelity. It never resizes: fidelity and encoding variant
// are the only knobs.
package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/sizefit/sizefit/internal/archive"
	"github.com/sizefit/sizefit/internal/config"
	"github.com/sizefit/sizefit/internal/encoder"
	"github.com/sizefit/sizefit/internal/imaging"
	"github.com/sizefit/sizefit/internal/report"
	"github.com/sizefit/sizefit/internal/scan"
	"github.com/sizefit/sizefit/internal/worker"
	"github.com/sizefit/sizefit/pkg/fit"
	"github.com/sizefit/sizefit/pkg/metrics"
	"github.com/sizefit/sizefit/pkg/sizeexpr"
)

type options struct {
	target        string
	baseFidelity  float64
	minFidelity   float64
	format        string
	outDir        string
	zipPath       string
	workers       int
	stripMetadata bool
	useTurbo      bool
}

func main() {
	cfg := config.Load()

	var opts options
	pflag.StringVarP(&opts.target, "target", "t", cfg.Target, `size budget, e.g. "600kb", "1.5mb", or "none"`)
	pflag.Float64Var(&opts.baseFidelity, "base-fidelity", cfg.BaseFidelity, "fidelity to start searching from")
	pflag.Float64Var(&opts.minFidelity, "min-fidelity", cfg.MinFidelity, "lowest fidelity the search may accept")
	pflag.StringVarP(&opts.format, "format", "f", cfg.OutputFormat, "output format: jpeg or webp")
	pflag.StringVarP(&opts.outDir, "out", "o", ".", "directory to write outputs to")
	pflag.StringVar(&opts.zipPath, "zip", "", "also package outputs and report into a zip archive")
	pflag.IntVarP(&opts.workers, "workers", "w", cfg.WorkerCount, "images processed in parallel")
	pflag.BoolVar(&opts.stripMetadata, "strip-metadata", cfg.StripMetadata, "drop source metadata from outputs")
	pflag.BoolVar(&opts.useTurbo, "turbo", cfg.UseTurbo, "use the libjpeg encoder for full variant control")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file-or-directory>...\n\nFlags:\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	if err := run(opts, pflag.Args()); err != nil {
		log.Printf("sizefit: %v", err)
		os.Exit(1)
	}
}

func run(opts options, paths []string) error {
	params, err := searchParams(opts)
	if err != nil {
		return err
	}

	enc, err := encoder.For(opts.format, opts.useTurbo)
	if err != nil {
		return err
	}

	files, err := scan.Discover(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported images found")
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := processAll(ctx, files, enc, params, opts)

	for i := range results {
		fmt.Println(results[i].Line())
	}
	summary := report.Summarize(results)
	fmt.Println(summary.String())

	if opts.zipPath != "" {
		if err := writeArchive(opts.zipPath, results, summary); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if summary.Errors > 0 {
		return fmt.Errorf("%d of %d images failed", summary.Errors, len(results))
	}
	return nil
}

func searchParams(opts options) (fit.Params, error) {
	params := fit.Params{
		BaseFidelity:  fit.ClampFidelity(opts.baseFidelity),
		MinFidelity:   fit.ClampFidelity(opts.minFidelity),
		StripMetadata: opts.stripMetadata,
	}
	if params.MinFidelity > params.BaseFidelity {
		return params, fmt.Errorf("min-fidelity %.2f above base-fidelity %.2f", params.MinFidelity, params.BaseFidelity)
	}
	if opts.target == "none" || opts.target == "" {
		params.TargetBytes = sizeexpr.Unconstrained
		return params, nil
	}
	target, err := sizeexpr.Parse(opts.target)
	if err != nil {
		return params, fmt.Errorf("target %q: %w", opts.target, err)
	}
	params.TargetBytes = target
	return params, nil
}

// processAll runs the search for every file on the worker pool. Results
// come back in input order. A failed image records its error and leaves
// the rest of the batch alone.
func processAll(ctx context.Context, files []string, enc encoder.Encoder, params fit.Params, opts options) []report.Image {
	pool := worker.NewPool(opts.workers)
	pool.Start()
	defer pool.Stop()

	results := make([]report.Image, len(files))
	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			results[i] = processOne(ctx, pool, path, enc, params, opts)
		}(i, path)
	}
	wg.Wait()
	return results
}

func processOne(ctx context.Context, pool *worker.Pool, path string, enc encoder.Encoder, params fit.Params, opts options) report.Image {
	rec := report.Image{Source: path}

	data, err := os.ReadFile(path)
	if err != nil {
		rec.Err = err
		return rec
	}
	rec.InputSize = int64(len(data))

	var img image.Image
	var result *fit.Result
	start := time.Now()
	err = pool.Run(ctx, func(ctx context.Context) error {
		var decodeErr error
		img, _, decodeErr = imaging.DecodeValidated(data)
		if decodeErr != nil {
			return decodeErr
		}
		var searchErr error
		result, searchErr = fit.Search(ctx, img, enc.Encode, params)
		return searchErr
	})
	if err != nil {
		metrics.RecordSearch("error", "batch", time.Since(start).Seconds(), 0, len(data), 0)
		rec.Err = err
		return rec
	}

	outcome := "pass"
	if !result.Pass {
		outcome = "fallback"
	}
	metrics.RecordSearch(outcome, "batch", time.Since(start).Seconds(), result.Probes, len(data), len(result.Data))

	rec.Output = outputPath(opts.outDir, path, opts.format)
	rec.OutputSize = result.Size()
	rec.Fidelity = result.Fidelity
	rec.Variant = result.Variant.String()
	rec.Pass = result.Pass

	if err := os.WriteFile(rec.Output, result.Data, 0o644); err != nil {
		rec.Err = fmt.Errorf("write %s: %w", rec.Output, err)
	}
	return rec
}

func outputPath(outDir, source, format string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, base+"."+encoder.Extension(format))
}

func writeArchive(zipPath string, results []report.Image, summary report.Summary) error {
	w, err := archive.Create(zipPath)
	if err != nil {
		return err
	}

	var lines strings.Builder
	for i := range results {
		lines.WriteString(results[i].Line())
		lines.WriteByte('\n')

		if results[i].Err != nil || results[i].Output == "" {
			continue
		}
		data, err := os.ReadFile(results[i].Output)
		if err != nil {
			w.Close()
			return err
		}
		if err := w.Add(results[i].Output, data); err != nil {
			w.Close()
			return err
		}
	}
	lines.WriteString(summary.String())
	lines.WriteByte('\n')

	if err := w.AddCompressed("report.txt", []byte(lines.String())); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
