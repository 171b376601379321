package evaluator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
)

// logc logs a message with the program point being analyzed.
func (e *Evaluator) logc(ctx context.Context, level slog.Level, msg string, args ...any) {
	// usually depth is 2, because logc is called from other functions
	e.logcWithCallerDepth(ctx, level, 2, msg, args...)
}

// for user, use logc instead of this function
func (e *Evaluator) logcWithCallerDepth(ctx context.Context, level slog.Level, depth int, msg string, args ...any) {
	if !e.logger.Enabled(ctx, level) {
		return
	}

	_, file, line, ok := runtime.Caller(depth)
	if ok {
		args = append([]any{slog.String("exec_pos", fmt.Sprintf("%s:%d", file, line))}, args...)
	}

	if ep := e.current; ep != nil {
		contextArgs := []any{
			slog.String("in_body", ep.Ctx.String()),
			slog.Int("pc", ep.PC),
			slog.String("in_body_pos", ep.SourceLocation()),
		}
		args = append(contextArgs, args...)
	}

	e.logger.Log(ctx, level, msg, args...)

	if dumpStackEnabled && level >= slog.LevelError {
		dumpFrames(e, os.Stderr)
	}
}

// dumpStackEnabled controls whether the frame chain is dumped on errors.
var dumpStackEnabled = os.Getenv("TYPEPROF_DUMP_STACK") != ""

func dumpFrames(e *Evaluator, w io.Writer) {
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, "analysis frame chain:")
	for ep := e.current; ep != nil; ep = ep.Outer {
		fmt.Fprintf(w, "  at %s (%s)\n", ep, ep.SourceLocation())
		if env, ok := e.ep2env[ep.key]; ok {
			fmt.Fprintf(w, "    env: %s\n", env.Inspect())
		}
	}
	fmt.Fprintln(w, "----------------------------------------")
}
