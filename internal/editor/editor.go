// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package editor defines the bytecode-editor collaborator the planner
// hands eligible methods to (spec.md §1, §6: out of scope for this module,
// defined here only as the interface boundary), plus a reference
// passthrough implementation for tests and the demo binary.
package editor

import (
	"fmt"

	"github.com/elastic/jfluid-agent/internal/classrecord"
)

// Editor splices profiling probes into a method's bytecode. It returns the
// rewritten method_info bytes and the number of constant-pool entries the
// rewrite appended (for ClassRecord.SetCurrentCPCount bookkeeping), or an
// error if it refuses the method -- the planner demotes the method to
// UNSCANNABLE on error rather than treating it as fatal (spec.md §7).
type Editor interface {
	InjectProbe(rec *classrecord.Record, methodIdx int, instrID uint16) (modifiedInfo []byte, cpEntriesAdded int, err error)
}

// ProbeInjector is a reference Editor that copies the method's original
// method_info verbatim, appending no constant-pool entries. It exists so
// the planner and the demo binary are runnable without a real bytecode
// rewriter; it never changes code layout, so every offset the decoder
// recorded for the original buffer remains valid for the "modified" one.
//
// ShouldFail, if set, lets tests simulate an editor refusal for a specific
// method without needing a real malformed rewrite.
type ProbeInjector struct {
	ShouldFail func(classInternalName string, methodIdx int) bool
}

// InjectProbe implements Editor.
func (p *ProbeInjector) InjectProbe(rec *classrecord.Record, methodIdx int, instrID uint16) ([]byte, int, error) {
	if p.ShouldFail != nil && p.ShouldFail(rec.Name.Slash, methodIdx) {
		return nil, 0, fmt.Errorf("editor: probe injection refused for %s method %d (instr id %d)",
			rec.Name.Slash, methodIdx, instrID)
	}
	orig := rec.OrigMethodInfo(methodIdx)
	buf := make([]byte, len(orig))
	copy(buf, orig)
	return buf, 0, nil
}
