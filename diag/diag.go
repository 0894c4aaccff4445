// Package diag collects diagnostics produced while migrating a single file.
package diag

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Level maps severity to log level used when diagnostics are printed.
func (s Severity) Level() zapcore.Level {
	switch s {
	case SeverityError:
		return zapcore.ErrorLevel
	case SeverityWarning:
		return zapcore.WarnLevel
	}
	return zapcore.DebugLevel
}

// Location points into host source, 1-based line and column.
type Location struct {
	Line   int
	Column int
	Offset int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

type Diagnostic struct {
	Severity  Severity
	Type      Kind
	Location  *Location
	Component string
	Reason    BailReason
	Context   string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	b.WriteString(" ")
	b.WriteString(string(d.Type))
	if d.Location != nil {
		b.WriteString(" at ")
		b.WriteString(d.Location.String())
	}
	if d.Component != "" {
		b.WriteString(" [")
		b.WriteString(d.Component)
		b.WriteString("]")
	}
	if d.Reason != BailNone {
		b.WriteString(" (")
		b.WriteString(string(d.Reason))
		b.WriteString(")")
	}
	if d.Context != "" {
		b.WriteString(": ")
		b.WriteString(d.Context)
	}
	return b.String()
}

// Fields returns diagnostic as structured log fields.
func (d Diagnostic) Fields() []zap.Field {
	fields := []zap.Field{zap.String("type", string(d.Type))}
	if d.Location != nil {
		fields = append(fields, zap.Stringer("at", d.Location))
	}
	if d.Component != "" {
		fields = append(fields, zap.String("component", d.Component))
	}
	if d.Reason != BailNone {
		fields = append(fields, zap.String("reason", string(d.Reason)))
	}
	if d.Context != "" {
		fields = append(fields, zap.String("context", d.Context))
	}
	return fields
}

// Sink is an ordered, append only list of diagnostics for one run. It is not
// safe for concurrent use, every file gets its own.
type Sink struct {
	items []Diagnostic
	once  map[string]struct{}
}

func NewSink() *Sink {
	return &Sink{once: make(map[string]struct{})}
}

// Add records diagnostic, missing severity is taken from the kind.
func (s *Sink) Add(d Diagnostic) {
	if s == nil {
		return
	}
	if d.Severity == SeverityInfo && d.Type.Severity() != SeverityInfo {
		d.Severity = d.Type.Severity()
	}
	s.items = append(s.items, d)
}

// Report is a shorthand for the most common case.
func (s *Sink) Report(kind Kind, component, context string, loc *Location) {
	s.Add(Diagnostic{Type: kind, Component: component, Context: context, Location: loc})
}

// Bail records dynamic-node diagnostic with given reason.
func (s *Sink) Bail(reason BailReason, component, context string, loc *Location) {
	s.Add(Diagnostic{Type: KindDynamicNode, Reason: reason, Component: component, Context: context, Location: loc})
}

// ReportOnce records kind at most once per sink regardless of component,
// used for file level structural findings.
func (s *Sink) ReportOnce(kind Kind, context string, loc *Location) {
	if s == nil {
		return
	}
	if s.once == nil {
		s.once = make(map[string]struct{})
	}
	if _, seen := s.once[string(kind)]; seen {
		return
	}
	s.once[string(kind)] = struct{}{}
	s.Report(kind, "", context, loc)
}

func (s *Sink) Items() []Diagnostic {
	if s == nil {
		return nil
	}
	return s.items
}

func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

func (s *Sink) Has(kind Kind) bool {
	return s.Count(kind) > 0
}

func (s *Sink) Count(kind Kind) int {
	n := 0
	for _, d := range s.Items() {
		if d.Type == kind {
			n++
		}
	}
	return n
}

// Truncate drops everything recorded after position n. Used to discard
// diagnostics of a component whose conversion was abandoned and retried.
func (s *Sink) Truncate(n int) {
	if s == nil || n < 0 || n >= len(s.items) {
		return
	}
	s.items = s.items[:n]
}

// LogMessage is the message every diagnostic is logged with, console
// encoders key their compact rendering on it.
const LogMessage = "Migration diagnostic"

// Log writes every diagnostic to the logger at level derived from severity.
func (s *Sink) Log(log *zap.Logger, file string) {
	for _, d := range s.Items() {
		if ce := log.Check(d.Severity.Level(), LogMessage); ce != nil {
			ce.Write(append([]zap.Field{zap.String("file", file)}, d.Fields()...)...)
		}
	}
}
