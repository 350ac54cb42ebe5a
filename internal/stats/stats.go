// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package stats tallies session-wide planner counters: classes loaded,
// parse outcomes, methods instrumented vs. demoted, and constant-pool
// growth. It is grounded on the teacher's successfailurecounter idiom for
// the one-shot outcome counters (a class-load either parses or faults
// exactly once; a method either gets instrumented or gets demoted exactly
// once per reachability check).
package stats

import (
	"sync/atomic"

	"github.com/elastic/jfluid-agent/successfailurecounter"
)

// Session holds the atomic counters backing a planner session's metrics.
type Session struct {
	parsedOK     atomic.Uint64
	parseFailed  atomic.Uint64
	instrumented atomic.Uint64
	demoted      atomic.Uint64

	ClassesLoaded  atomic.Uint64
	CPEntriesAdded atomic.Uint64
}

// Snapshot is a point-in-time read of every Session counter.
type Snapshot struct {
	ClassesLoaded   uint64
	ParsedOK        uint64
	ParseFailed     uint64
	Instrumented    uint64
	Demoted         uint64
	CPEntriesAdded  uint64
}

// NewClassLoadOutcome returns a one-shot counter for this class-load's
// parse result: exactly one of ReportSuccess/ReportFailure should be
// called.
func (s *Session) NewClassLoadOutcome() successfailurecounter.SuccessFailureCounter {
	s.ClassesLoaded.Add(1)
	return successfailurecounter.New(&s.parsedOK, &s.parseFailed)
}

// NewMethodOutcome returns a one-shot counter for a single method's
// reachability-check result: instrumented or demoted to UNSCANNABLE.
func (s *Session) NewMethodOutcome() successfailurecounter.SuccessFailureCounter {
	return successfailurecounter.New(&s.instrumented, &s.demoted)
}

// AddCPEntries records constant-pool growth from an editor pass.
func (s *Session) AddCPEntries(n int) {
	if n > 0 {
		s.CPEntriesAdded.Add(uint64(n))
	}
}

// Snapshot reads every counter without resetting them -- unlike the
// per-operation outcome counters, these are cumulative for the life of the
// session.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ClassesLoaded:  s.ClassesLoaded.Load(),
		ParsedOK:       s.parsedOK.Load(),
		ParseFailed:    s.parseFailed.Load(),
		Instrumented:   s.instrumented.Load(),
		Demoted:        s.demoted.Load(),
		CPEntriesAdded: s.CPEntriesAdded.Load(),
	}
}
