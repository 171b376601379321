package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/podhmo/typeprof"
	"github.com/podhmo/typeprof/cache"
	"github.com/podhmo/typeprof/evaluator"
)

// errFound is returned by run when the analysis reported errors.
var errFound = errors.New("errors found")

type options struct {
	configPath string
	cachePath  string
	progress   time.Duration

	maxSteps    int
	maxDuration time.Duration
	pedantic    bool
	logLevel    string

	paths []string
	set   map[string]bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&opts.cachePath, "cache", "", "path to the result cache file (disabled if empty)")
	flag.DurationVar(&opts.progress, "progress", time.Second, "interval of the progress line on a terminal (0 disables it)")
	flag.IntVar(&opts.maxSteps, "max-steps", 0, "stop after this many steps (0 means unlimited)")
	flag.DurationVar(&opts.maxDuration, "max-duration", 0, "stop after this much time (0 means unlimited)")
	flag.BoolVar(&opts.pedantic, "pedantic", false, "keep untyped members of unions in the output")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: typeprof [flags] bundle.yaml...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	opts.paths = flag.Args()
	if len(opts.paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	opts.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if err := run(context.Background(), os.Stdout, os.Stderr, opts); err != nil {
		if errors.Is(err, errFound) {
			os.Exit(1)
		}
		log.Printf("!! %+v", err)
		os.Exit(2)
	}
}

func loadConfig(opts options) (*typeprof.Config, error) {
	cfg := typeprof.DefaultConfig()
	if opts.configPath != "" {
		c, err := typeprof.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if opts.set["max-steps"] {
		cfg.MaxSteps = opts.maxSteps
	}
	if opts.set["max-duration"] {
		cfg.MaxDuration = opts.maxDuration
	}
	if opts.set["pedantic"] {
		cfg.Pedantic = opts.pedantic
	}
	if opts.set["log-level"] {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func cacheKey(cfg *typeprof.Config, paths []string) (string, error) {
	var parts [][]byte
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		parts = append(parts, []byte(path), data)
	}
	b, err := cfg.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return cache.Key(append(parts, b)...), nil
}

func run(ctx context.Context, stdout io.Writer, stderr *os.File, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	rc := cache.NewResultCache(opts.cachePath, logger)
	var key string
	if rc.IsEnabled() {
		if err := rc.Load(); err != nil {
			return err
		}
		key, err = cacheKey(cfg, opts.paths)
		if err != nil {
			return err
		}
		if entry, ok := rc.Get(key); ok {
			logger.DebugContext(ctx, "cache hit", "key", key)
			if _, err := io.WriteString(stdout, entry.Output); err != nil {
				return err
			}
			if entry.Errors > 0 {
				return errFound
			}
			return nil
		}
	}

	analyzerOpts := []typeprof.Option{typeprof.WithConfig(cfg), typeprof.WithLogger(logger)}
	tty := isatty.IsTerminal(stderr.Fd()) || isatty.IsCygwinTerminal(stderr.Fd())
	if tty && opts.progress > 0 {
		analyzerOpts = append(analyzerOpts, typeprof.WithProgress(opts.progress, func(p evaluator.Progress) {
			fmt.Fprintf(stderr, "\r\033[K[typeprof] steps=%d queued=%d %s", p.Steps, p.Queued, p.Location)
		}))
	}

	a, err := typeprof.New(analyzerOpts...)
	if err != nil {
		return err
	}
	if err := a.Load(ctx, opts.paths...); err != nil {
		return err
	}
	result, err := a.Run(ctx)
	if tty && opts.progress > 0 {
		fmt.Fprint(stderr, "\r\033[K")
	}
	if err != nil {
		return err
	}

	output := result.String()
	if _, err := io.WriteString(stdout, output); err != nil {
		return err
	}

	if rc.IsEnabled() && !result.Terminated() {
		rc.Set(key, cache.Entry{Output: output, Terminated: result.Terminated(), Errors: result.ErrorCount()})
		if err := rc.Save(); err != nil {
			return err
		}
	}
	if result.ErrorCount() > 0 {
		return errFound
	}
	return nil
}
