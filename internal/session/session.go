// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package session ties the class repository, the instrumentation planner
// and the session config behind one mutex (spec.md §5: "single-threaded
// cooperative with respect to the planner... All planner entry points...
// execute under a single mutex on the repository+planner compound"). It is
// the thing an external agent actually holds a reference to: one Session
// per profiling attach.
package session

import (
	"context"
	"sync"

	"github.com/elastic/jfluid-agent/internal/classcache"
	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/editor"
	"github.com/elastic/jfluid-agent/internal/intern"
	"github.com/elastic/jfluid-agent/internal/plannerconfig"
	"github.com/elastic/jfluid-agent/internal/planner"
	"github.com/elastic/jfluid-agent/internal/repository"
	"github.com/elastic/jfluid-agent/internal/resultpack"
	"github.com/elastic/jfluid-agent/internal/rootset"
	"github.com/elastic/jfluid-agent/internal/stats"
	"github.com/google/uuid"
)

// Session is one attach-to-a-target-JVM profiling run. ID is a fresh
// google/uuid tag for correlating log lines with this session. Batches do
// not carry it: each resultpack.Batch has only its own per-pack uuid.
type Session struct {
	ID uuid.UUID

	mu      sync.Mutex
	table   *intern.Table
	repo    *repository.Repository
	planner *planner.Planner
	stats   *stats.Session
}

// New constructs a Session. cacheCapacity sizes the classcache LRU;
// fetcher is the external class-file bytes provider; ed is the bytecode
// editor collaborator; cfg is the session's planner toggles.
func New(fetcher classcache.Fetcher, cacheCapacity uint32, ed editor.Editor,
	cfg plannerconfig.Config) (*Session, error) {
	cache, err := classcache.New(fetcher, cacheCapacity)
	if err != nil {
		return nil, err
	}
	table := intern.NewTable()
	repo := repository.New(table, cache)
	st := &stats.Session{}
	pack := resultpack.New()
	return &Session{
		ID:      uuid.New(),
		table:   table,
		repo:    repo,
		planner: planner.New(repo, ed, pack, cfg, st),
		stats:   st,
	}, nil
}

// Initial replays the root-classes-loaded command (spec.md §6): the
// classes already resident in the target JVM at attach time, plus the
// declared root patterns. It must be called exactly once, before any
// OnClassLoad (spec.md §5 "initial strictly precedes any on_class_load").
func (s *Session) Initial(ctx context.Context, snapshot planner.InitialSnapshot,
	roots *rootset.RootSet) (resultpack.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planner.Initial(ctx, snapshot, roots)
}

// OnClassLoad replays one class-load event from the agent's event-dispatch
// path.
func (s *Session) OnClassLoad(ctx context.Context, className string,
	loader classrecord.LoaderID) (resultpack.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planner.OnClassLoad(ctx, className, loader)
}

// OnMethodInvoke and OnReflectInvoke exist only because the abstract
// planner API includes them (spec.md §4.5); both are no-ops in this
// total-instrumentation variant.
func (s *Session) OnMethodInvoke(ctx context.Context, className string,
	loader classrecord.LoaderID, methodIdx int) resultpack.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planner.OnMethodInvoke(ctx, className, loader, methodIdx)
}

func (s *Session) OnReflectInvoke(ctx context.Context, className string,
	loader classrecord.LoaderID, methodIdx int) resultpack.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planner.OnReflectInvoke(ctx, className, loader, methodIdx)
}

// Stats returns a point-in-time snapshot of the session's counters.
func (s *Session) Stats() stats.Snapshot {
	return s.stats.Snapshot()
}

// Seed pre-installs a parsed record for a custom-loader class whose bytes
// arrived with the root-classes-loaded command rather than through the
// normal fetch path (spec.md §4.5 "stores custom-loader bytes via C3").
func (s *Session) Seed(rec *classrecord.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repo.Seed(rec)
}
