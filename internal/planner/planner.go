// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package planner is the instrumentation state machine (C5 in the planner
// design): on each class-load event it walks roots, wildcards, filter
// rules, and the Runnable/main implicit-root heuristics to mark methods
// reachable, demote the uninteresting ones to UNSCANNABLE, and hand the
// rest to the bytecode editor. It is a direct port of
// RecursiveMethodInstrumentor3 (see _examples/original_source) generalized
// off DynamicClassInfo's Go counterpart, internal/classrecord.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/editor"
	"github.com/elastic/jfluid-agent/internal/plannerconfig"
	"github.com/elastic/jfluid-agent/internal/repository"
	"github.com/elastic/jfluid-agent/internal/resultpack"
	"github.com/elastic/jfluid-agent/internal/rootset"
	"github.com/elastic/jfluid-agent/internal/stats"
	"go.uber.org/multierr"
)

const (
	objectInternalName      = "java/lang/Object"
	threadInternalName      = "java/lang/Thread"
	runnableInternalName    = "java/lang/Runnable"
	classLoaderInternalName = "java/lang/ClassLoader"
	sunLauncherPrefix       = "sun/launcher/Launcher"

	mainName            = "main"
	mainDescriptor      = "([Ljava/lang/String;)V"
	runName             = "run"
	runDescriptor       = "()V"
	loadClassName       = "loadClass"
	loadClassDescriptor = "(Ljava/lang/String;)Ljava/lang/Class;"
	constructorName     = "<init>"
)

// LoadedClass names one class already resident in the target JVM at attach
// time, as delivered by the root-classes-loaded command (spec.md §6).
type LoadedClass struct {
	Name   string
	Loader classrecord.LoaderID
}

// InitialSnapshot is the payload of the root-classes-loaded command: the
// classes already loaded when the agent attached.
type InitialSnapshot struct {
	Loaded []LoadedClass
}

// Planner holds the per-session mutable state the original jfluid source
// keeps as instance fields of RecursiveMethodInstrumentor3:
// mainInstrumented and noExplicitRoots (spec.md §9 "global mutable state
// is planner-scoped").
type Planner struct {
	repo   *repository.Repository
	editor editor.Editor
	pack   *resultpack.Packer
	cfg    plannerconfig.Config
	stats  *stats.Session
	filter *rootset.Filter

	roots           *rootset.Compiled
	noExplicitRoots bool
	mainInstrumented bool
	nextInstrID      uint16
}

// New builds a Planner. cfg's filter globs are compiled once, at
// construction time rather than per class-load.
func New(repo *repository.Repository, ed editor.Editor, pk *resultpack.Packer, cfg plannerconfig.Config, st *stats.Session) *Planner {
	return &Planner{
		repo:        repo,
		editor:      ed,
		pack:        pk,
		cfg:         cfg,
		stats:       st,
		filter:      cfg.CompileFilter(),
		nextInstrID: 1,
	}
}

// Initial replays the root-classes-loaded command: compiles roots, then for
// each already-loaded class links it into the ancestor/subclass graph, runs
// the Runnable implicit-root check, walks root patterns, and sweeps every
// method through the reachability check. It unconditionally marks
// java.lang.ClassLoader.loadClass(String) reachable so class-load timing is
// measured from the start. Per-class parse failures are collected rather
// than aborting the rest of the snapshot (spec.md §7); classes that cannot
// be located at all are skipped silently.
func (p *Planner) Initial(ctx context.Context, snapshot InitialSnapshot, roots *rootset.RootSet) (resultpack.Batch, error) {
	p.roots = rootset.Compile(roots, p.repo.Table())
	p.noExplicitRoots = rootset.NoExplicitRoots(roots)

	var errs error
	for _, lc := range snapshot.Loaded {
		rec, err := p.repo.LookupOrCreate(ctx, lc.Name, lc.Loader)
		p.recordLoadOutcome(rec, err)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("planner: initial load %s: %w", lc.Name, err))
			continue
		}
		if rec == nil {
			continue
		}
		rec.SetLoaded(true)
		p.linkAncestors(ctx, rec)
		p.tryInstrumentSpawnedThreads(rec)
		p.applyRootMarks(rec, p.roots.MatchingIndices(rec.Name, rec.Name.Slash))
		p.markAllMethodsInstrumentable(rec)
	}

	if cl, err := p.repo.LookupOrCreate(ctx, classLoaderInternalName, 0); err == nil && cl != nil {
		p.checkAndMarkMethodForInstrumentationByName(cl, loadClassName, loadClassDescriptor)
	}

	return p.pack.Pack(), errs
}

// OnClassLoad implements the per-subsequent-load-event state machine of
// spec.md §4.5 steps 1-8.
func (p *Planner) OnClassLoad(ctx context.Context, className string, loader classrecord.LoaderID) (resultpack.Batch, error) {
	rec, err := p.repo.LookupOrCreate(ctx, className, loader)
	p.recordLoadOutcome(rec, err)
	if err != nil {
		return resultpack.Batch{}, fmt.Errorf("planner: class load %s: %w", className, err)
	}
	if rec == nil {
		return p.pack.Pack(), nil
	}
	rec.SetLoaded(true)
	p.linkAncestors(ctx, rec)

	if rec.IsInterface() {
		return p.pack.Pack(), nil
	}

	p.markProfilePoints(rec)
	p.tryInstrumentSpawnedThreads(rec)
	p.tryMainMethodInstrumentation(rec)

	matches := p.roots.MatchingIndices(rec.Name, rec.Name.Slash)
	isRootClass := len(matches) > 0

	if !isRootClass && !p.filter.Allows(rec.Name.Slash) {
		return p.pack.Pack(), nil
	}

	p.applyRootMarks(rec, matches)

	if rec.AllMethodsMarkers || rec.AllMethodsRoots || p.filter.Allows(rec.Name.Slash) {
		p.markAllMethodsInstrumentable(rec)
	}

	return p.pack.Pack(), nil
}

// OnMethodInvoke is a no-op in this total-instrumentation variant: every
// method a root/sweep pass reaches is already instrumented at class-load
// time, so there is nothing left for an invocation-triggered hook to do
// (spec.md §4.5 "Other entry points ... return ∅").
func (p *Planner) OnMethodInvoke(context.Context, string, classrecord.LoaderID, int) resultpack.Batch {
	return resultpack.Batch{}
}

// OnReflectInvoke is the reflective-call counterpart of OnMethodInvoke,
// equally a no-op here.
func (p *Planner) OnReflectInvoke(context.Context, string, classrecord.LoaderID, int) resultpack.Batch {
	return resultpack.Batch{}
}

// recordLoadOutcome tallies one class-load's parse result: a fatal parse
// fault is a failure, anything else (including a tolerated lookup miss,
// rec == nil) counts as a success for this counter's purposes, matching
// spec.md §7's "a single bad class cannot halt profiling" framing.
func (p *Planner) recordLoadOutcome(_ *classrecord.Record, err error) {
	outcome := p.stats.NewClassLoadOutcome()
	if err != nil {
		outcome.ReportFailure()
		return
	}
	outcome.ReportSuccess()
}

// linkAncestors resolves rec's super/interface references (fetching and
// parsing them via the repository if this is the first reference to them)
// and inserts rec into the Subclasses list of every class on its super
// chain and every interface it implements, at any depth (spec.md §4.5
// "insert it into its own ancestor chains' subclasses lists").
func (p *Planner) linkAncestors(ctx context.Context, rec *classrecord.Record) {
	if rec.SuperRef == nil && rec.SuperName != "" {
		if super, err := p.repo.LookupOrCreate(ctx, rec.SuperName, rec.LoaderID); err == nil && super != nil {
			rec.SetSuper(super)
		}
	}
	for i, iname := range rec.InterfaceNames {
		if i < len(rec.InterfaceRefs) && rec.InterfaceRefs[i] != nil {
			continue
		}
		if intf, err := p.repo.LookupOrCreate(ctx, iname, rec.LoaderID); err == nil && intf != nil {
			rec.SetSuperInterface(intf, i)
		}
	}
	p.addToAncestorSubclassLists(rec, rec)
}

func (p *Planner) addToAncestorSubclassLists(start, cur *classrecord.Record) {
	if cur.SuperRef != nil && cur.SuperRef != cur {
		cur.SuperRef.AddSubclass(start)
		p.addToAncestorSubclassLists(start, cur.SuperRef)
	}
	for _, intf := range cur.InterfaceRefs {
		if intf == nil {
			continue
		}
		intf.AddSubclass(start)
		p.addToAncestorSubclassLists(start, intf)
	}
}

// markProfilePoints runs the reachability check for every configured
// profile point attached to rec's class, independent of root/marker/filter
// status (spec.md §4.5 step 1).
func (p *Planner) markProfilePoints(rec *classrecord.Record) {
	for _, pp := range p.cfg.ProfilePoints {
		if pp.ClassName != rec.Name.Slash {
			continue
		}
		if idx := rec.MethodIndex(pp.MethodName, pp.MethodSignature); idx >= 0 {
			p.checkMethod(rec, idx)
		}
	}
}

// tryInstrumentSpawnedThreads implements spec.md §4.5 step 2: when spawned
// thread instrumentation is on, or there are no explicit roots at all, a
// class that transitively implements Runnable (but is not Thread itself)
// has its run()V method auto-rooted.
func (p *Planner) tryInstrumentSpawnedThreads(rec *classrecord.Record) bool {
	if !p.cfg.InstrumentSpawnedThreads && !p.noExplicitRoots {
		return false
	}
	if rec.Name.Slash == threadInternalName {
		return false
	}
	if !rec.ImplementsInterface(runnableInternalName) {
		return false
	}
	idx := rec.MethodIndex(runName, runDescriptor)
	if idx < 0 {
		return false
	}
	rec.SetMethodRoot(idx)
	p.checkMethod(rec, idx)
	return true
}

// tryMainMethodInstrumentation implements spec.md §4.5 step 3: with no
// explicit roots and no main method captured yet, a conforming
// "public static void main(String[])" is auto-rooted. Classes under
// sun/launcher/Launcher don't consume the one-shot flag, so the JVM
// launcher's own trampoline main doesn't block the real application main
// from also being captured.
func (p *Planner) tryMainMethodInstrumentation(rec *classrecord.Record) bool {
	if !p.noExplicitRoots || p.mainInstrumented {
		return false
	}
	idx := rec.MethodIndex(mainName, mainDescriptor)
	if idx < 0 {
		return false
	}
	mi := rec.Methods[idx]
	if !mi.IsPublic() || !mi.IsStatic() {
		return false
	}
	rec.SetMethodRoot(idx)
	p.checkMethod(rec, idx)
	if !strings.HasPrefix(rec.Name.Slash, sunLauncherPrefix) {
		p.mainInstrumented = true
	}
	return true
}

// applyRootMarks is the explicit-root mark pass (spec.md §4.5 step 6): for
// each matching entry, a class/method wildcard marks every method of the
// class; an exact entry locates its one method by name+descriptor. A root
// naming a method the class doesn't have is silently ignored (spec.md §7).
func (p *Planner) applyRootMarks(rec *classrecord.Record, indices []int) {
	for _, i := range indices {
		e := p.roots.Entry(i)
		if e.ClassWildcard || e.IsMethodWildcard() {
			if e.Marker {
				rec.SetAllMethodsMarkers()
			} else {
				rec.SetAllMethodsRoots()
			}
			continue
		}
		idx := rec.MethodIndex(e.MethodName, e.MethodSignature)
		if idx < 0 {
			continue
		}
		if e.Marker {
			rec.SetMethodMarker(idx)
		} else {
			rec.SetMethodRoot(idx)
		}
		p.checkMethod(rec, idx)
	}
}

// checkAndMarkMethodForInstrumentationByName runs the reachability check for
// a method identified by name+descriptor, used for the unconditional
// ClassLoader.loadClass carve-out in Initial.
func (p *Planner) checkAndMarkMethodForInstrumentationByName(rec *classrecord.Record, name, descriptor string) bool {
	idx := rec.MethodIndex(name, descriptor)
	if idx < 0 {
		return false
	}
	p.checkMethod(rec, idx)
	return true
}

// markAllMethodsInstrumentable runs the reachability check over every
// method of rec. Interfaces have no method bodies worth scanning and are
// skipped, mirroring the original checkAndMarkAllMethodsForInstrumentation.
func (p *Planner) markAllMethodsInstrumentable(rec *classrecord.Record) {
	if rec.IsInterface() {
		return
	}
	for i := range rec.Methods {
		p.checkMethod(rec, i)
	}
}

// checkMethod is the per-method reachability check (spec.md §4.5 "Per-
// method reachability check"). It is idempotent: a method already
// REACHABLE is left untouched.
func (p *Planner) checkMethod(rec *classrecord.Record, idx int) {
	if rec.IsMethodReachable(idx) {
		return
	}
	rec.SetMethodReachable(idx)

	mi := rec.Methods[idx]
	unscannable := p.isUnscannable(rec, idx, mi)
	if !unscannable {
		bc := rec.MethodBytecode(idx)
		switch {
		case p.cfg.DontInstrumentEmptyMethods && isEmptyMethod(bc):
			unscannable = true
		case p.cfg.DontScanGetterSetterMethods && isGetterSetterMethod(bc):
			unscannable = true
		}
	}

	outcome := p.stats.NewMethodOutcome()
	if unscannable {
		rec.SetMethodUnscannable(idx)
		outcome.ReportFailure()
		return
	}
	rec.SetMethodLeaf(idx)
	p.instrument(rec, idx, &outcome)
}

// isUnscannable evaluates the four class/method-level UNSCANNABLE clauses of
// spec.md §4.5: native/abstract, filtered-out-and-not-a-root-or-marker, Object, and
// the constructor-skip rule (major > 50 and constructor instrumentation
// disabled).
func (p *Planner) isUnscannable(rec *classrecord.Record, idx int, mi classrecord.MethodInfo) bool {
	switch {
	case mi.IsNative() || mi.IsAbstract():
		return true
	case !rec.IsMethodRoot(idx) && !rec.IsMethodMarker(idx) && !p.filter.Allows(rec.Name.Slash):
		return true
	case rec.Name.Slash == objectInternalName:
		return true
	case mi.Name == constructorName && rec.MajorVersion > 50 && !p.cfg.CanInstrumentConstructor:
		return true
	}
	return false
}

// instrument hands a LEAF method to the bytecode editor and records the
// outcome. An editor refusal demotes the method to UNSCANNABLE rather than
// failing the whole class-load (spec.md §7 "editor failure").
func (p *Planner) instrument(rec *classrecord.Record, idx int, outcome successFailureReporter) {
	id := p.nextInstrID
	modified, cpAdded, err := p.editor.InjectProbe(rec, idx, id)
	if err != nil {
		rec.SetMethodUnscannable(idx)
		outcome.ReportFailure()
		return
	}
	p.nextInstrID++

	rec.SaveMethodInfo(idx, modified)
	rec.SetInstrMethodID(idx, id)
	rec.SetMethodInstrumented(idx)
	if cpAdded > 0 {
		rec.SetCurrentCPCount(rec.GetCurrentCPCount() + cpAdded)
		p.stats.AddCPEntries(cpAdded)
	}
	outcome.ReportSuccess()

	p.pack.Enqueue(resultpack.MethodRecord{
		ClassInternalName:  rec.Name.Slash,
		LoaderID:           rec.LoaderID,
		MethodIndex:        idx,
		ModifiedMethodInfo: modified,
	})
}

// successFailureReporter is the subset of successfailurecounter.SuccessFailureCounter
// checkMethod/instrument need, kept as a local interface so this file
// doesn't have to import the counter package just to name the parameter
// type of a private helper.
type successFailureReporter interface {
	ReportSuccess()
	ReportFailure()
}

const (
	opReturn  = 0xb1
	opIReturn = 0xac
	opLReturn = 0xad
	opFReturn = 0xae
	opDReturn = 0xaf
	opAReturn = 0xb0
	opALoad0  = 0x2a
	opALoad1  = 0x2b
	opILoad1  = 0x1b
	opLLoad1  = 0x1f
	opFLoad1  = 0x23
	opDLoad1  = 0x27
	opGetField = 0xb4
	opPutField = 0xb5
)

// isEmptyMethod reports whether bc is a single trivial return instruction,
// with no other code preceding it (spec.md §4.5 "a single trivial return").
func isEmptyMethod(bc []byte) bool {
	if len(bc) != 1 {
		return false
	}
	switch bc[0] {
	case opReturn, opIReturn, opLReturn, opFReturn, opDReturn, opAReturn:
		return true
	}
	return false
}

// isGetterSetterMethod recognizes the two canonical accessor shapes: a
// getter (aload_0, getfield, return-the-value) and a setter (aload_0,
// load-the-parameter, putfield, return) (spec.md §4.5 "load this, get/put
// field, return").
func isGetterSetterMethod(bc []byte) bool {
	return isGetterShape(bc) || isSetterShape(bc)
}

func isGetterShape(bc []byte) bool {
	if len(bc) != 5 {
		return false
	}
	if bc[0] != opALoad0 || bc[1] != opGetField {
		return false
	}
	switch bc[4] {
	case opAReturn, opIReturn, opLReturn, opFReturn, opDReturn:
		return true
	}
	return false
}

func isSetterShape(bc []byte) bool {
	if len(bc) != 6 {
		return false
	}
	if bc[0] != opALoad0 {
		return false
	}
	switch bc[1] {
	case opALoad1, opILoad1, opLLoad1, opFLoad1, opDLoad1:
	default:
		return false
	}
	return bc[2] == opPutField && bc[5] == opReturn
}
