package filesystem

import (
	"sync"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/types"

	"github.com/rs/zerolog"
)

// LogSink writes each diagnostic as a structured warning
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs to logger
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Warn(d types.Diagnostic) {
	s.logger.Warn().
		Str("path", d.Path).
		Str("op", d.Op).
		Err(d.Err).
		Msg(d.String())
}

// CollectingSink keeps every diagnostic it receives. Safe for concurrent use.
type CollectingSink struct {
	mu          sync.Mutex
	diagnostics []types.Diagnostic
}

// NewCollectingSink creates an empty collecting sink
func NewCollectingSink() *CollectingSink {
	return &CollectingSink{}
}

func (s *CollectingSink) Warn(d types.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = append(s.diagnostics, d)
}

// Diagnostics returns a copy of the collected diagnostics in arrival order
func (s *CollectingSink) Diagnostics() []types.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// Len returns the number of collected diagnostics
func (s *CollectingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.diagnostics)
}

// SinkFunc adapts a function to interfaces.DiagnosticSink
type SinkFunc func(types.Diagnostic)

func (f SinkFunc) Warn(d types.Diagnostic) { f(d) }

// NopSink discards diagnostics
var NopSink interfaces.DiagnosticSink = SinkFunc(func(types.Diagnostic) {})

var (
	_ interfaces.DiagnosticSink = (*LogSink)(nil)
	_ interfaces.DiagnosticSink = (*CollectingSink)(nil)
	_ interfaces.Walker         = (*Walker)(nil)
)
