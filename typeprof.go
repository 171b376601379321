// Package typeprof infers type signatures of a program by abstract
// interpretation of its bytecode. It wires the bundle loader, the evaluator
// and the signature formatter together.
package typeprof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/podhmo/typeprof/evaluator"
	"github.com/podhmo/typeprof/fs"
	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
)

// ErrAlreadyRun is returned when Run is called a second time.
var ErrAlreadyRun = errors.New("typeprof: analyzer already ran")

// Analyzer collects bundles and runs one analysis over them.
type Analyzer struct {
	config   *Config
	logger   *slog.Logger
	fs       fs.FS
	progress func(evaluator.Progress)
	interval time.Duration

	eval    *evaluator.Evaluator
	bundles []*iseq.Bundle
	ran     bool
}

// Option configures an Analyzer.
type Option func(*Analyzer) error

// WithConfig sets the analysis settings.
func WithConfig(c *Config) Option {
	return func(a *Analyzer) error {
		if c == nil {
			return nil
		}
		if err := c.Validate(); err != nil {
			return err
		}
		a.config = c
		return nil
	}
}

// WithLogger sets the logger. Without it, a text logger on stderr at the
// configured level is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) error {
		a.logger = logger
		return nil
	}
}

// WithFS sets the file system bundles are read from.
func WithFS(fsys fs.FS) Option {
	return func(a *Analyzer) error {
		a.fs = fsys
		return nil
	}
}

// WithProgress registers a callback called at most once per interval while
// the analysis runs.
func WithProgress(interval time.Duration, fn func(evaluator.Progress)) Option {
	return func(a *Analyzer) error {
		a.interval = interval
		a.progress = fn
		return nil
	}
}

// New creates an Analyzer.
func New(options ...Option) (*Analyzer, error) {
	a := &Analyzer{config: DefaultConfig()}
	for _, option := range options {
		if err := option(a); err != nil {
			return nil, err
		}
	}
	if a.fs == nil {
		a.fs = fs.NewOSFS()
	}
	if a.logger == nil {
		level, err := a.config.Level()
		if err != nil {
			return nil, err
		}
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	opts := append(a.config.evaluatorOptions(), evaluator.WithLogger(a.logger))
	if a.progress != nil {
		opts = append(opts, evaluator.WithProgress(a.interval, a.progress))
	}
	a.eval = evaluator.New(opts...)
	return a, nil
}

// Config returns the settings in effect.
func (a *Analyzer) Config() *Config {
	return a.config
}

// Evaluator returns the underlying evaluator, for native registration and
// for reading raw results.
func (a *Analyzer) Evaluator() *evaluator.Evaluator {
	return a.eval
}

// Load reads bundle files. They are analyzed in the order given.
func (a *Analyzer) Load(ctx context.Context, paths ...string) error {
	bundles, err := iseq.LoadFilesWith(ctx, a.fs.ReadFile, paths...)
	if err != nil {
		return fmt.Errorf("load bundles: %w", err)
	}
	a.bundles = append(a.bundles, bundles...)
	a.logger.DebugContext(ctx, "bundles loaded", "count", len(bundles))
	return nil
}

// AddBundle adds an already decoded bundle.
func (a *Analyzer) AddBundle(b *iseq.Bundle) {
	a.bundles = append(a.bundles, b)
}

// DeclareMethod installs a method known only by its signatures, e.g.
// DeclareMethod("Foo", "bar", false, sig) for Foo#bar.
func (a *Analyzer) DeclareMethod(classPath, name string, singleton bool, sigs ...object.DeclaredSignature) error {
	return a.eval.DeclareMethod(classPath, name, singleton, sigs...)
}

// RegisterNative installs a native method; see evaluator.RegisterNative.
func (a *Analyzer) RegisterNative(key string, fn evaluator.NativeFunc) error {
	return a.eval.RegisterNative(key, fn)
}

// Run analyzes every loaded bundle to a fixed point (or a budget) and
// returns the result.
func (a *Analyzer) Run(ctx context.Context) (*Result, error) {
	if a.ran {
		return nil, ErrAlreadyRun
	}
	a.ran = true
	if len(a.bundles) == 0 {
		return nil, fmt.Errorf("no bundles to analyze")
	}

	mains := make([]*iseq.CodeBody, len(a.bundles))
	for i, b := range a.bundles {
		mains[i] = b.Main
	}
	start := time.Now()
	if err := a.eval.Run(ctx, mains...); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	a.logger.InfoContext(ctx, "analysis done",
		"steps", a.eval.Steps(),
		"explored", a.eval.ExploredPoints(),
		"terminated", a.eval.Terminated(),
		"elapsed", time.Since(start))
	return newResult(a.eval, a.config.Pedantic), nil
}
