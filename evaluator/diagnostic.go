package evaluator

import (
	"context"
	"fmt"
	"log/slog"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a problem found in the analyzed program.
type Diagnostic struct {
	Location string
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: [%s] %s", d.Location, d.Severity, d.Message)
}

// Diagnostics returns the collected diagnostics in the order found. A
// diagnostic reported repeatedly at one location is kept once.
func (e *Evaluator) Diagnostics() []Diagnostic {
	return append([]Diagnostic{}, e.diagnostics...)
}

func (e *Evaluator) report(ctx context.Context, ep *ExecPoint, sev Severity, format string, args ...any) {
	d := Diagnostic{Location: ep.SourceLocation(), Severity: sev, Message: fmt.Sprintf(format, args...)}
	if !e.diagnosticsSeen.Insert(d.String()) {
		return
	}
	e.diagnostics = append(e.diagnostics, d)
	level := slog.LevelInfo
	if sev == SeverityError {
		level = slog.LevelWarn
	}
	e.logcWithCallerDepth(ctx, level, 3, "diagnostic", "location", d.Location, "severity", d.Severity.String(), "message", d.Message)
}

func (e *Evaluator) errorf(ctx context.Context, ep *ExecPoint, format string, args ...any) {
	e.report(ctx, ep, SeverityError, format, args...)
}

func (e *Evaluator) warnf(ctx context.Context, ep *ExecPoint, format string, args ...any) {
	e.report(ctx, ep, SeverityWarning, format, args...)
}
