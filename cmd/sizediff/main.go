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
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gophersatwork/sizediff"
	"github.com/gophersatwork/sizediff/config"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	configFile  = flag.String("config", "", "TOML configuration file")
	cacheDir    = flag.String("cache", "", "artifact cache directory (overrides config)")
	concurrency = flag.Int("j", 0, "number of backend jobs to run at once (0 = one per CPU)")
	jsonOut     = flag.String("json", "", "also write the full report as JSON to this file")
	pruneAfter  = flag.Duration("prune", 0, "remove temporary cache files older than this before comparing")
	verbose     = flag.Bool("v", false, "show verbose output")

	enabled listFlag
	groups  listFlag
)

func main() {
	flag.Var(&enabled, "backend", "enable a backend by name (repeatable, default all)")
	flag.Var(&groups, "group", "group files by a path pattern, NAME=PATTERN or PATTERN (repeatable, ordered)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `sizediff measures how much two extracted image trees differ.

Usage:

        sizediff [options] FROM TO

The options are:

`)
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, flag.Arg(0), flag.Arg(1), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "sizediff: %v\n", err)
		if errors.Is(err, sizediff.ErrConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, from, to string, w io.Writer) error {
	fs := afero.NewOsFs()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(fs, *configFile); err != nil {
			return err
		}
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *concurrency != 0 {
		cfg.Concurrency = *concurrency
	}
	if len(enabled) > 0 {
		cfg.Backends = enabled
	}
	for _, g := range groups {
		name, pattern, ok := strings.Cut(g, "=")
		if !ok {
			name, pattern = g, g
		}
		cfg.Groups = append(cfg.Groups, sizediff.GroupSpec{Name: name, Pattern: pattern})
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := append(cfg.Options(fs), sizediff.WithLogger(logger))
	d, err := sizediff.New(cfg.CacheDir, opts...)
	if err != nil {
		return err
	}

	logger.Debug("using cache", "dir", d.Cache().Root())

	if *pruneAfter > 0 {
		n, err := d.Cache().PruneTemp(*pruneAfter)
		if err != nil {
			return err
		}
		logger.Info("pruned cache", "removed", n)
	}

	start := time.Now()
	report, err := d.Compare(ctx, from, to)
	if err != nil {
		return err
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	for _, s := range report.Backends {
		if !s.Available {
			fmt.Fprintf(os.Stderr, "warning: backend %s is not available, its totals are unknown\n", s.Name)
		}
	}

	if *jsonOut != "" {
		if err := sizediff.WriteReport(fs, *jsonOut, report); err != nil {
			return err
		}
	}

	printReport(w, report)
	logger.Debug("comparison finished", "elapsed", time.Since(start))
	return nil
}

func printReport(w io.Writer, report *sizediff.Report) {
	p := message.NewPrinter(language.English)

	var names []string
	for _, s := range report.Backends {
		if s.Available {
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)

	for _, g := range report.Groups {
		printGroup(w, p, g.Name, g.Pattern, &g.Summary, names)
	}
	if len(report.Groups) > 0 {
		printGroup(w, p, report.Ungrouped.Name, "", &report.Ungrouped.Summary, names)
	}
	printGroup(w, p, "total", "", &report.Overall, names)
}

func printGroup(w io.Writer, p *message.Printer, name, pattern string, s *sizediff.Summary, backends []string) {
	if pattern != "" && pattern != name {
		p.Fprintf(w, "== %s (%s) ==\n", name, pattern)
	} else {
		p.Fprintf(w, "== %s ==\n", name)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	header := "\tfiles\tbytes\t"
	for _, b := range backends {
		header += b + "\t"
	}
	fmt.Fprintln(tw, header)

	for _, kind := range sizediff.Kinds {
		t := s.Totals(kind)
		line := p.Sprintf("%s\t%d\t%d\t", kind, t.Count, t.Size)
		for _, b := range backends {
			if v, ok := t.Backend(b); ok {
				line += p.Sprintf("%d\t", v)
			} else {
				line += "-\t"
			}
		}
		fmt.Fprintln(tw, line)
	}

	line := p.Sprintf("ship\t\t%d\t", s.DiffSize)
	for _, b := range backends {
		line += p.Sprintf("%d\t", s.BackendTotals[b])
	}
	fmt.Fprintln(tw, line)
	tw.Flush()
	fmt.Fprintln(w)
}
