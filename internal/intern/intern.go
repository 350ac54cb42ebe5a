// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package intern resolves the string-identity open question from the
// class-instrumentation planner: every internal class name that enters a
// session is canonicalized to slash form and interned exactly once, so the
// planner's hot-path comparisons (isSubclassOf, root-pattern matching) can
// compare *Name pointers instead of string contents.
package intern

import (
	"strings"
	"sync"
)

// Name is an interned, canonical (slash-form) internal class name. Two Names
// denote the same class if and only if the pointers are equal.
type Name struct {
	Slash string
}

func (n *Name) String() string {
	if n == nil {
		return ""
	}
	return n.Slash
}

// Table is a process/session-scoped interning table. The zero value is not
// usable; construct with NewTable.
type Table struct {
	mu sync.Mutex
	m  map[string]*Name
}

// NewTable returns an empty interning table.
func NewTable() *Table {
	return &Table{m: make(map[string]*Name)}
}

// ToSlash canonicalizes a dotted-or-slashed class name to slash form, e.g.
// "java.lang.String" and "java/lang/String" both become "java/lang/String".
func ToSlash(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// Intern canonicalizes and interns name, returning the shared *Name for it.
func (t *Table) Intern(name string) *Name {
	slash := ToSlash(name)
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.m[slash]; ok {
		return n
	}
	n := &Name{Slash: slash}
	t.m[slash] = n
	return n
}

// Lookup returns the interned Name for name if it has already been interned,
// without creating it.
func (t *Table) Lookup(name string) (*Name, bool) {
	slash := ToSlash(name)
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.m[slash]
	return n, ok
}
