// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package rootset holds the compiled representation of user-declared root
// patterns (C4 in the planner design): exact class names, package
// wildcards, method wildcards, and the marker-vs-root distinction.
package rootset

import (
	"strings"

	"github.com/elastic/jfluid-agent/internal/intern"
)

// Entry is one user-declared root rule, in the slash-canonicalized form the
// caller is responsible for supplying (the planner itself canonicalizes
// class-load events, but root declarations arrive pre-canonicalized from
// the attach-time command per spec.md §6).
type Entry struct {
	ClassName      string
	ClassWildcard  bool
	MethodName     string
	MethodSignature string
	Marker         bool
}

// IsMethodWildcard reports whether this entry's method pattern matches
// every method of the class rather than one specific signature.
func (e Entry) IsMethodWildcard() bool { return e.MethodName == "*" }

// RootSet is the uncompiled parallel-array root declaration, built up once
// from the attach-time root-classes-loaded command.
type RootSet struct {
	entries []Entry
}

// New returns an empty RootSet.
func New() *RootSet { return &RootSet{} }

// Add appends a root declaration.
func (rs *RootSet) Add(e Entry) { rs.entries = append(rs.entries, e) }

// Len reports the number of declared entries.
func (rs *RootSet) Len() int { return len(rs.entries) }

// NoExplicitRoots reports true if rs is empty or every entry is a marker
// (spec.md §4.4): in either case the planner falls back to the implicit
// main/Runnable.run root heuristics.
func NoExplicitRoots(rs *RootSet) bool {
	if rs == nil || len(rs.entries) == 0 {
		return true
	}
	for _, e := range rs.entries {
		if !e.Marker {
			return false
		}
	}
	return true
}

// compiledEntry pre-resolves each entry's matching strategy so Compile need
// only run once (at Initial time), not on every class-load.
type compiledEntry struct {
	Entry
	name   *intern.Name // non-nil for exact (non-wildcard) class matches
	prefix string       // non-empty for class-wildcard matches
}

// Compiled is the matcher built from a RootSet by Compile.
type Compiled struct {
	entries []compiledEntry
}

// wildcardPrefix recognizes the fixed class-wildcard syntax: a pattern
// ending in "/*" (package subtree) or a bare terminal "*" (literal prefix).
func wildcardPrefix(pattern string) (string, bool) {
	if strings.HasSuffix(pattern, "/*") {
		return pattern[:len(pattern)-1], true // keep the trailing slash
	}
	if strings.HasSuffix(pattern, "*") {
		return pattern[:len(pattern)-1], true
	}
	return "", false
}

// Compile resolves every entry's class-name matcher once against table,
// pre-interning exact (non-wildcard) class names so the planner's hot-path
// status pass compares pointers instead of strings.
func Compile(rs *RootSet, table *intern.Table) *Compiled {
	if rs == nil {
		return &Compiled{}
	}
	out := make([]compiledEntry, len(rs.entries))
	for i, e := range rs.entries {
		ce := compiledEntry{Entry: e}
		if e.ClassWildcard {
			if prefix, ok := wildcardPrefix(e.ClassName); ok {
				ce.prefix = prefix
			} else {
				ce.prefix = e.ClassName
			}
		} else {
			ce.name = table.Intern(e.ClassName)
		}
		out[i] = ce
	}
	return &Compiled{entries: out}
}

// matches reports whether entry ce's class pattern matches the given class,
// identified both by its interned name (for exact matches) and its
// slash-form string (for wildcard prefix matches).
func (c *Compiled) matches(ce compiledEntry, name *intern.Name, slash string) bool {
	if ce.ClassWildcard {
		return strings.HasPrefix(slash, ce.prefix)
	}
	return ce.name == name
}

// MatchingIndices returns the indices of every entry whose class pattern
// matches the given class (spec.md §4.5 step 4/6: status pass, then mark
// pass, both driven off the same match set).
func (c *Compiled) MatchingIndices(name *intern.Name, slash string) []int {
	var out []int
	for i, ce := range c.entries {
		if c.matches(ce, name, slash) {
			out = append(out, i)
		}
	}
	return out
}

// Entry returns entry i's original declaration.
func (c *Compiled) Entry(i int) Entry { return c.entries[i].Entry }

// Len reports the number of compiled entries.
func (c *Compiled) Len() int { return len(c.entries) }

// Filter is an include/exclude instrumentation filter (spec.md §4.4):
// a class is allowed if it matches no exclude pattern and either no
// include patterns are configured or it matches at least one.
type Filter struct {
	include []globPattern
	exclude []globPattern
}

// NewFilter compiles include/exclude glob pattern lists once.
func NewFilter(include, exclude []string) *Filter {
	f := &Filter{}
	for _, p := range include {
		f.include = append(f.include, compileGlob(p))
	}
	for _, p := range exclude {
		f.exclude = append(f.exclude, compileGlob(p))
	}
	return f
}

// Allows reports whether the filter accepts the given slash-form class
// name.
func (f *Filter) Allows(slash string) bool {
	if f == nil {
		return true
	}
	for _, p := range f.exclude {
		if p.match(slash) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, p := range f.include {
		if p.match(slash) {
			return true
		}
	}
	return false
}

// globPattern is a glob with "*" wildcards, compiled once into literal
// segments so matching is a handful of string comparisons rather than a
// regular-expression engine invocation per class-load.
type globPattern struct {
	segments []string
	anchoredStart bool
	anchoredEnd   bool
}

func compileGlob(pattern string) globPattern {
	segs := strings.Split(pattern, "*")
	return globPattern{
		segments:      segs,
		anchoredStart: !strings.HasPrefix(pattern, "*"),
		anchoredEnd:   !strings.HasSuffix(pattern, "*"),
	}
}

func (g globPattern) match(s string) bool {
	if len(g.segments) == 1 {
		return s == g.segments[0]
	}
	rest := s
	for i, seg := range g.segments {
		switch {
		case i == 0:
			if g.anchoredStart {
				if !strings.HasPrefix(rest, seg) {
					return false
				}
				rest = rest[len(seg):]
			} else if seg != "" {
				idx := strings.Index(rest, seg)
				if idx < 0 {
					return false
				}
				rest = rest[idx+len(seg):]
			}
		case i == len(g.segments)-1:
			if g.anchoredEnd {
				return strings.HasSuffix(rest, seg)
			}
			return strings.Contains(rest, seg)
		default:
			if seg == "" {
				continue
			}
			idx := strings.Index(rest, seg)
			if idx < 0 {
				return false
			}
			rest = rest[idx+len(seg):]
		}
	}
	return true
}
