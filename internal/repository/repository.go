// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package repository is the identity map (internal_name, loader_id) ->
// *classrecord.Record (C3 in the planner design). It canonicalises names to
// slash-form and interns them so the planner's hot-path comparisons can use
// pointer identity, and fronts internal/classcache for first-touch byte
// fetches.
package repository

import (
	"context"
	"sync"

	"github.com/elastic/jfluid-agent/internal/classfile"
	"github.com/elastic/jfluid-agent/internal/classcache"
	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/intern"
)

type key struct {
	name   *intern.Name
	loader classrecord.LoaderID
}

// Repository owns the identity map. Its own mutex guards only the map
// itself -- the first-touch byte fetch runs outside it (via classcache's
// singleflight group), so two goroutines racing on the same miss block on
// one fetch rather than one holding this lock for the duration of an I/O
// call (spec.md §5).
type Repository struct {
	table *intern.Table
	cache *classcache.Client

	mu      sync.Mutex
	records map[key]*classrecord.Record
}

// New builds an empty Repository backed by cache, interning names with
// table.
func New(table *intern.Table, cache *classcache.Client) *Repository {
	return &Repository{
		table:   table,
		cache:   cache,
		records: make(map[key]*classrecord.Record),
	}
}

// Table returns the repository's interning table, so callers (the planner,
// rootset compilation) intern names consistently with the repository.
func (r *Repository) Table() *intern.Table { return r.table }

// LookupOrCreate resolves name (dot or slash form) under loader to a
// *classrecord.Record, parsing it on first reference. A fetch failure (the
// class cannot be located at all) is a tolerated lookup miss: it returns
// (nil, nil), per spec.md §4.3 and §7. A malformed class file is a fatal
// parse fault and is returned as a non-nil error.
func (r *Repository) LookupOrCreate(ctx context.Context, name string, loader classrecord.LoaderID) (*classrecord.Record, error) {
	slash := intern.ToSlash(name)
	interned := r.table.Intern(slash)
	k := key{name: interned, loader: loader}

	r.mu.Lock()
	if rec, ok := r.records[k]; ok {
		r.mu.Unlock()
		return rec, nil
	}
	r.mu.Unlock()

	data, err := r.cache.Fetch(ctx, slash, loader)
	if err != nil {
		return nil, nil
	}

	rec, err := classfile.Decode(data, slash, loader, r.table)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.records[k]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.records[k] = rec
	r.mu.Unlock()
	return rec, nil
}

// Lookup returns the already-resolved record for (name, loader), if any,
// without triggering a fetch.
func (r *Repository) Lookup(name string, loader classrecord.LoaderID) (*classrecord.Record, bool) {
	interned, ok := r.table.Lookup(intern.ToSlash(name))
	if !ok {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key{name: interned, loader: loader}]
	return rec, ok
}

// Seed installs a pre-parsed record directly, used by Session.Seed to
// pre-install custom-loader classes supplied with the root-classes-loaded
// command (spec.md §4.5).
func (r *Repository) Seed(rec *classrecord.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key{name: rec.Name, loader: rec.LoaderID}] = rec
}
