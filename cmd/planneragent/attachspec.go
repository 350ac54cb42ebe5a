// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/planner"
	"github.com/elastic/jfluid-agent/internal/rootset"
)

// rootEntry is the on-disk JSON shape of one root-pattern declaration,
// mirroring rootset.Entry (spec.md §4.4).
type rootEntry struct {
	Class         string `json:"class"`
	ClassWildcard bool   `json:"classWildcard"`
	Method        string `json:"method"`
	Signature     string `json:"signature"`
	Marker        bool   `json:"marker"`
}

// loadedEntry is the on-disk JSON shape of one already-loaded class in the
// attach-time snapshot, mirroring planner.LoadedClass.
type loadedEntry struct {
	Name   string `json:"name"`
	Loader int32  `json:"loader"`
}

// attachSpec is the root-classes-loaded command (spec.md §6): the roots
// declared at attach time, plus the classes already resident in the
// target JVM.
type attachSpec struct {
	Roots  []rootEntry   `json:"roots"`
	Loaded []loadedEntry `json:"loaded"`
}

// loadAttachSpec reads and parses an attachSpec from path. A missing path
// is not an error: it yields an empty spec (no explicit roots, nothing
// preloaded), which is a legitimate "profile everything from main" attach.
func loadAttachSpec(path string) (attachSpec, error) {
	if path == "" {
		return attachSpec{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return attachSpec{}, fmt.Errorf("reading attach spec %s: %w", path, err)
	}
	var spec attachSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return attachSpec{}, fmt.Errorf("parsing attach spec %s: %w", path, err)
	}
	return spec, nil
}

// toRootSet converts the JSON root declarations into a rootset.RootSet.
func (spec attachSpec) toRootSet() *rootset.RootSet {
	rs := rootset.New()
	for _, r := range spec.Roots {
		rs.Add(rootset.Entry{
			ClassName:       r.Class,
			ClassWildcard:   r.ClassWildcard,
			MethodName:      r.Method,
			MethodSignature: r.Signature,
			Marker:          r.Marker,
		})
	}
	return rs
}

// toInitialSnapshot converts the JSON preloaded-class list into a
// planner.InitialSnapshot.
func (spec attachSpec) toInitialSnapshot() planner.InitialSnapshot {
	snap := planner.InitialSnapshot{Loaded: make([]planner.LoadedClass, 0, len(spec.Loaded))}
	for _, l := range spec.Loaded {
		snap.Loaded = append(snap.Loaded, planner.LoadedClass{
			Name:   l.Name,
			Loader: classrecord.LoaderID(l.Loader),
		})
	}
	return snap
}

// classLoadEvent is the on-disk JSON shape of one subsequent class-load
// event (spec.md §6), as would otherwise arrive over the wire protocol
// this module treats as an external collaborator.
type classLoadEvent struct {
	Name   string `json:"name"`
	Loader int32  `json:"loader"`
}

// loadEvents reads a JSON array of classLoadEvent from path.
func loadEvents(path string) ([]classLoadEvent, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading events %s: %w", path, err)
	}
	var events []classLoadEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parsing events %s: %w", path, err)
	}
	return events, nil
}
