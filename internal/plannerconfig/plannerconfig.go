// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package plannerconfig holds the session-wide toggles the planner
// consults on every reachability check (A2 in the expanded design),
// analogous to jfluid's ProfilerEngineSettings/ProfilingSessionStatus.
package plannerconfig

import "github.com/elastic/jfluid-agent/internal/rootset"

// ProfilePoint names a single method a profile point has been attached to,
// independent of root/marker status (spec.md §4.5 step 1).
type ProfilePoint struct {
	ClassName       string
	MethodName      string
	MethodSignature string
}

// Config is the set of per-session planner toggles.
type Config struct {
	// CanInstrumentConstructor allows <init> methods of class-file major
	// version > 50 to be instrumented. When false, such constructors are
	// always demoted to UNSCANNABLE (spec.md §4.5).
	CanInstrumentConstructor bool

	// DontInstrumentEmptyMethods demotes single-instruction trivial-return
	// method bodies to UNSCANNABLE instead of LEAF.
	DontInstrumentEmptyMethods bool

	// DontScanGetterSetterMethods demotes getter/setter-shaped method
	// bodies to UNSCANNABLE instead of LEAF.
	DontScanGetterSetterMethods bool

	// InstrumentSpawnedThreads, independent of NoExplicitRoots, forces the
	// Runnable.run implicit-root check to run.
	InstrumentSpawnedThreads bool

	// FilterInclude/FilterExclude compile into the InstrFilter (spec.md
	// §4.4); empty FilterInclude means "everything not excluded passes".
	FilterInclude []string
	FilterExclude []string

	// ProfilePoints are marked reachable on every OnClassLoad pass
	// regardless of root/marker/filter status (spec.md §4.5 step 1). Initial
	// does not consult them.
	ProfilePoints []ProfilePoint
}

// Default returns the conservative defaults: constructors instrumentable,
// empty/getter-setter methods skipped, spawned-thread instrumentation off
// (implicit roots still kick in whenever NoExplicitRoots holds).
func Default() Config {
	return Config{
		CanInstrumentConstructor:    true,
		DontInstrumentEmptyMethods:  true,
		DontScanGetterSetterMethods: true,
	}
}

// CompileFilter builds the InstrFilter from FilterInclude/FilterExclude.
func (c Config) CompileFilter() *rootset.Filter {
	return rootset.NewFilter(c.FilterInclude, c.FilterExclude)
}
