// Package log builds the logr.Logger used across the index, backed
// directly by github.com/go-logr/stdr rather than a hand-rolled sink.
package log

import (
	stdlog "log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// Verbosity levels. Level zero, the default, matters most; increasing
// levels matter less. Split/merge decisions log at Info (0); individual
// page allocations log at V(1).
const (
	Info  = 0
	Debug = 1
)

// New returns a logr.Logger backed by the standard library logger, at the
// given verbosity. Pass Discard() in tests that don't want tree-internal
// chatter.
func New(verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags))
}

// Discard returns a logr.Logger that drops everything, for callers that
// don't supply their own via index.Options.
func Discard() logr.Logger {
	return logr.Discard()
}
