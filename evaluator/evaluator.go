package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/go-set/v3"
	"github.com/podhmo/typeprof/intrinsics"
	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
	"github.com/podhmo/typeprof/scope"
)

// Progress is reported periodically while the analysis runs.
type Progress struct {
	Steps    int
	Queued   int
	Location string
}

// Evaluator runs the abstract interpretation to a fixed point.
type Evaluator struct {
	logger *slog.Logger

	maxSteps         int
	maxDuration      time.Duration
	typeDepthLimit   int
	progress         func(Progress)
	progressInterval time.Duration

	natives *intrinsics.Registry[NativeFunc]

	classDefs []*ClassDef
	builtin   builtinClasses
	rootScope *scope.Scope
	gvars     *VarTable

	worklist     *worklist
	ep2env       map[string]*object.Env
	explored     *set.Set[string]
	returnEnvs   map[string]*object.Env
	callsites    map[string]*callsiteSet
	returnValues map[string]object.Type

	methodSigs      map[string]*object.MethodSignature
	blockSigs       map[string]*object.BlockSignature
	blockCtxs       map[string][]*Context
	methodCtxs      map[*MethodDef][]*Context
	methodCtxKeys   map[*MethodDef]*set.Set[string]
	escapes         map[string]ivarSite
	executed        *set.Set[int]
	pending         []pendingExecution
	pendingBodies   *set.Set[int]
	revealed        map[string]object.Type
	revealedOrder   []string
	diagnostics     []Diagnostic
	diagnosticsSeen *set.Set[string]

	steps      int
	terminated bool
	current    *ExecPoint
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// WithMaxSteps bounds the number of analysis steps. Zero means no bound.
func WithMaxSteps(n int) Option {
	return func(e *Evaluator) { e.maxSteps = n }
}

// WithMaxDuration bounds the wall-clock time of Run. Zero means no bound.
func WithMaxDuration(d time.Duration) Option {
	return func(e *Evaluator) { e.maxDuration = d }
}

// WithTypeDepthLimit sets the nesting depth at which container types are
// truncated to Any.
func WithTypeDepthLimit(n int) Option {
	return func(e *Evaluator) { e.typeDepthLimit = n }
}

// WithProgress registers a callback invoked at most once per interval.
func WithProgress(interval time.Duration, fn func(Progress)) Option {
	return func(e *Evaluator) {
		e.progress = fn
		e.progressInterval = interval
	}
}

// New creates an Evaluator with the builtin classes and methods installed.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		typeDepthLimit:   5,
		progressInterval: time.Second,
		natives:          intrinsics.New[NativeFunc](),
		gvars:            newVarTable(),
		worklist:         newWorklist(),
		ep2env:           map[string]*object.Env{},
		explored:         set.New[string](64),
		returnEnvs:       map[string]*object.Env{},
		callsites:        map[string]*callsiteSet{},
		returnValues:     map[string]object.Type{},
		methodSigs:       map[string]*object.MethodSignature{},
		blockSigs:        map[string]*object.BlockSignature{},
		blockCtxs:        map[string][]*Context{},
		methodCtxs:       map[*MethodDef][]*Context{},
		methodCtxKeys:    map[*MethodDef]*set.Set[string]{},
		escapes:          map[string]ivarSite{},
		executed:         set.New[int](16),
		pendingBodies:    set.New[int](16),
		revealed:         map[string]object.Type{},
		diagnosticsSeen:  set.New[string](16),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	e.bootstrap()
	return e
}

// RegisterNative installs or replaces a native method. The key has the form
// "Class#method" for instance methods or "Class.method" for singleton methods.
// Natives registered before Run take effect when the class exists.
func (e *Evaluator) RegisterNative(key string, fn NativeFunc) error {
	cls, mid, singleton, ok := intrinsics.SplitKey(key)
	if !ok {
		return fmt.Errorf("invalid native key %q", key)
	}
	def := e.lookupClassPath(cls)
	if def == nil {
		return fmt.Errorf("register native %q: unknown class %s", key, cls)
	}
	e.natives.Register(key, fn)
	def.setMethod(mid, singleton, &MethodDef{Kind: NativeMethod, Name: mid, Native: fn})
	return nil
}

// DeclareMethod installs a declared-signature method on the class at path
// ("Foo::Bar"). The class must exist.
func (e *Evaluator) DeclareMethod(classPath, mid string, singleton bool, sigs ...object.DeclaredSignature) error {
	def := e.lookupClassPath(classPath)
	if def == nil {
		return fmt.Errorf("declare %s: unknown class %s", mid, classPath)
	}
	def.setMethod(mid, singleton, &MethodDef{Kind: TypedMethod, Name: mid, Sigs: sigs})
	return nil
}

// Run analyzes the given top-level bodies until a fixed point or a budget is
// reached. A violated internal invariant aborts the run with an error.
func (e *Evaluator) Run(ctx context.Context, mains ...*iseq.CodeBody) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var ie *object.InvariantError
			if rerr, ok := r.(error); ok && errors.As(rerr, &ie) {
				where := ""
				if e.current != nil {
					where = " at " + e.current.SourceLocation()
				}
				err = fmt.Errorf("%w%s", ie, where)
				return
			}
			panic(r)
		}
	}()

	for _, main := range mains {
		if main.Kind != iseq.KindTop {
			return fmt.Errorf("run %s: not a top-level body (%s)", main.Name, main.Kind)
		}
		mctx := newContext(main, e.rootScope, "")
		ep := newExecPoint(mctx, 0, nil)
		static := object.StaticEnv{Recv: object.NewInstance(e.builtin.Object), Blk: e.nilType(), ModFunc: false}
		env := object.NewEnv(static, e.nilLocals(main.LocalSize()), nil, true)
		e.executed.Insert(main.ID)
		e.mergeEnv(ep, env)
	}

	start := time.Now()
	lastReport := start
	for {
		for e.worklist.Len() > 0 {
			if e.budgetExhausted(ctx, start) {
				e.terminated = true
				e.logc(ctx, slog.LevelInfo, "analysis terminated", "steps", e.steps, "queued", e.worklist.Len())
				return nil
			}
			ep := e.worklist.Pop()
			e.steps++
			e.step(ctx, ep)
			if e.progress != nil && time.Since(lastReport) >= e.progressInterval {
				lastReport = time.Now()
				e.progress(Progress{Steps: e.steps, Queued: e.worklist.Len(), Location: ep.SourceLocation()})
			}
		}
		if !e.runPending(ctx) {
			break
		}
	}
	e.logc(ctx, slog.LevelInfo, "analysis finished", "steps", e.steps)
	return nil
}

func (e *Evaluator) budgetExhausted(ctx context.Context, start time.Time) bool {
	if e.maxSteps > 0 && e.steps >= e.maxSteps {
		return true
	}
	if e.maxDuration > 0 && time.Since(start) >= e.maxDuration {
		return true
	}
	return ctx.Err() != nil
}

// Terminated reports whether Run stopped on a budget before the fixed point.
func (e *Evaluator) Terminated() bool { return e.terminated }

// Steps returns the number of steps taken.
func (e *Evaluator) Steps() int { return e.steps }

func (e *Evaluator) nilLocals(n int) []object.Type {
	locals := make([]object.Type, n)
	for i := range locals {
		locals[i] = e.nilType()
	}
	return locals
}

func anyLocals(n int) []object.Type {
	locals := make([]object.Type, n)
	for i := range locals {
		locals[i] = object.Any
	}
	return locals
}
