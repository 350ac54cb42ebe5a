// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package resultpack serializes the planner's pending-instrumentation
// queue into the outbound result tuple (C6 in the planner design).
package resultpack

import (
	"sync"

	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/google/uuid"
)

// MethodRecord names one instrumented method ready for the bytecode editor
// / downstream agent to splice into a redefined class.
type MethodRecord struct {
	ClassInternalName  string
	LoaderID           classrecord.LoaderID
	MethodIndex        int
	ModifiedMethodInfo []byte
}

// Batch is one drain of the pending-instrumentation queue, tagged with a
// fresh id so a log line or downstream RPC can correlate which pack() call
// produced these records.
type Batch struct {
	ID      uuid.UUID
	Methods []MethodRecord
}

// Packer accumulates MethodRecords as the planner instruments methods and
// drains them destructively on Pack.
type Packer struct {
	mu      sync.Mutex
	pending []MethodRecord
}

// New returns an empty Packer.
func New() *Packer { return &Packer{} }

// Enqueue records one newly instrumented method, to be included in the
// next Pack call.
func (p *Packer) Enqueue(rec MethodRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, rec)
}

// Pack drains all pending records into a fresh Batch. Draining is
// destructive: a subsequent Pack call only sees records enqueued since
// this call returned.
func (p *Packer) Pack() Batch {
	p.mu.Lock()
	defer p.mu.Unlock()
	methods := p.pending
	p.pending = nil
	return Batch{ID: uuid.New(), Methods: methods}
}

// Pending reports how many records are queued without draining them.
func (p *Packer) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
