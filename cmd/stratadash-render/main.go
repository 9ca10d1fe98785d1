// Package main provides stratadash-render, which renders dashboard charts
// outside the server: from a YAML snapshot fixture, the embedded demo
// data, or a running instance's chart API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dalemusser/stratadash/internal/app/charts"
	"github.com/dalemusser/stratadash/internal/app/charts/catalog"
	"github.com/dalemusser/stratadash/internal/app/features/chartapi"
	snapshotstore "github.com/dalemusser/stratadash/internal/app/store/snapshots"
	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/render"
	"github.com/dalemusser/stratadash/internal/app/system/revival"
	"github.com/dalemusser/stratadash/internal/app/system/seeding"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/dalemusser/stratadash/internal/app/system/widget"
	"github.com/dalemusser/stratadash/internal/domain/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	fixture  string
	server   string
	rangeKey string
	format   string
	output   string
	locale   string
	currency string
	timeout  time.Duration
	verbose  bool
	now      func() time.Time
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{now: time.Now}
	cmd := &cobra.Command{
		Use:   "stratadash-render <section> [chart]",
		Short: "Render dashboard charts without a browser",
		Long: `stratadash-render builds chart definitions from a snapshot fixture (or the
embedded demo data) and writes them as JSON, HTML, CSV or XLSX. With --server
it fetches definitions from a running instance instead.`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.fixture, "fixture", "", "YAML snapshot fixture (default: embedded demo data)")
	f.StringVar(&opts.server, "server", "", "Base URL of a running instance (e.g., http://localhost:8080)")
	f.StringVarP(&opts.rangeKey, "range", "r", "", "Time range key (e.g., 3m, 1y, all)")
	f.StringVarP(&opts.format, "format", "f", "json", "Output format: json, html, csv, xlsx")
	f.StringVarP(&opts.output, "output", "o", "", "Output file path (default: stdout)")
	f.StringVar(&opts.locale, "locale", "en-US", "Locale for number formatting")
	f.StringVar(&opts.currency, "currency", "USD", "Default currency (ISO 4217)")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Time budget for building or fetching")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")
	return cmd
}

func run(ctx context.Context, stdout io.Writer, opts *options, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	logger := zap.NewNop()
	if opts.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
		defer func() { _ = logger.Sync() }()
	}

	section := args[0]
	var chartIDs []string
	if len(args) == 2 {
		chartIDs = []string{args[1]}
	}

	var fetcher widget.Fetcher
	if opts.server != "" {
		if len(chartIDs) == 0 {
			return fmt.Errorf("a chart id is required with --server")
		}
		fetcher = widget.NewHTTPFetcher(opts.server, opts.timeout)
	} else {
		resolver, err := localResolver(opts, logger)
		if err != nil {
			return err
		}
		m := resolver.Manager()
		if !m.HasSection(section) {
			return fmt.Errorf("unknown section %q (have %v)", section, m.Sections())
		}
		if len(chartIDs) == 0 {
			for _, b := range m.Section(section) {
				chartIDs = append(chartIDs, b.ChartID())
			}
		}
		fetcher = localFetcher(resolver)
	}

	var buf bytes.Buffer
	if err := write(ctx, &buf, opts, fetcher, section, chartIDs, logger); err != nil {
		return err
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		logger.Info("wrote output", zap.String("path", opts.output), zap.Int("bytes", buf.Len()))
		return nil
	}
	_, err := buf.WriteTo(stdout)
	return err
}

func localResolver(opts *options, logger *zap.Logger) (*charts.Resolver, error) {
	now := opts.now()
	var (
		snaps []models.Snapshot
		err   error
	)
	if opts.fixture != "" {
		snaps, err = seeding.Load(opts.fixture, now)
	} else {
		snaps, err = seeding.Demo(now)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	logger.Info("loaded snapshots", zap.Int("count", len(snaps)))

	m, err := catalog.New(charts.Deps{
		Source: snapshotstore.NewMemory(snaps...),
		Now:    opts.now,
	}, logger)
	if err != nil {
		return nil, err
	}
	return charts.NewResolver(m, nil, ""), nil
}

func localFetcher(resolver *charts.Resolver) widget.Fetcher {
	return widget.FuncFetcher(func(ctx context.Context, sectionID, chartID, rangeKey string) (*viz.Definition, error) {
		f := ranges.Filters{Range: rangeKey}
		if rangeKey != "" {
			f.Ranges = map[string]string{chartID: rangeKey}
		}
		return resolver.Definition(ctx, sectionID, chartID, f)
	})
}

func write(ctx context.Context, w io.Writer, opts *options, fetcher widget.Fetcher, section string, chartIDs []string, logger *zap.Logger) error {
	switch opts.format {
	case "json":
		defs, err := fetchAll(ctx, fetcher, section, chartIDs, opts.rangeKey)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(chartIDs) == 1 {
			return enc.Encode(defs[0])
		}
		return enc.Encode(defs)

	case "html":
		r := newRenderer(opts, logger)
		for _, id := range chartIDs {
			wd := widget.New(widget.Config{SectionID: section, ChartID: id, Fetcher: fetcher, Logger: logger})
			// Fetch errors are shown in the widget's error state.
			_ = wd.Select(ctx, opts.rangeKey)
			html, err := wd.View(r, widget.ViewOptions{})
			wd.Close()
			if err != nil {
				return err
			}
			if _, err := io.WriteString(w, string(html)+"\n"); err != nil {
				return err
			}
		}
		return nil

	case "csv", "xlsx":
		if len(chartIDs) != 1 {
			return fmt.Errorf("%s output needs exactly one chart", opts.format)
		}
		defs, err := fetchAll(ctx, fetcher, section, chartIDs, opts.rangeKey)
		if err != nil {
			return err
		}
		if defs[0] == nil {
			return fmt.Errorf("chart %s/%s has no data", section, chartIDs[0])
		}
		g, ok := chartapi.GridOf(defs[0].Visualization)
		if !ok {
			return fmt.Errorf("chart %s/%s has no tabular data", section, chartIDs[0])
		}
		if opts.format == "csv" {
			return chartapi.WriteCSV(w, g, defs[0].Title)
		}
		return chartapi.WriteXLSX(w, g, defs[0].Title)

	default:
		return fmt.Errorf("invalid format: %s (must be json, html, csv, or xlsx)", opts.format)
	}
}

// fetchAll returns one definition per chart id, in order. Charts without
// data yield nil entries.
func fetchAll(ctx context.Context, fetcher widget.Fetcher, section string, chartIDs []string, rangeKey string) ([]*viz.Definition, error) {
	defs := make([]*viz.Definition, len(chartIDs))
	for i, id := range chartIDs {
		def, err := fetcher.Fetch(ctx, section, id, rangeKey)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", section, id, err)
		}
		defs[i] = def
	}
	return defs, nil
}

func newRenderer(opts *options, logger *zap.Logger) *render.Renderer {
	f := numfmt.NewFromLocale(opts.locale, opts.currency)
	h := callbacks.NewHydrator(callbacks.NewRegistry(f, nil), revival.New(revival.DefaultTimeout, logger), logger)
	ro := []render.Option{render.WithFormatter(f)}
	if opts.server != "" {
		ro = append(ro, render.WithSanitizedMarkup())
	}
	return render.New(h, nil, logger, ro...)
}
