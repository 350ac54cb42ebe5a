// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package classrecord

import "github.com/elastic/jfluid-agent/internal/intern"

// objectSubclassCapacity is the initial Subclasses capacity reserved for
// java/lang/Object, which in a real JVM process accumulates essentially
// every loaded class.
const objectSubclassCapacity = 500

// AddSubclass appends s to this class's Subclasses list. Interface
// receivers dedupe (an implementor can be recorded at most once);
// non-interface receivers permit duplicates, since in practice a class
// loads at most once per loader and this can't actually arise.
func (r *Record) AddSubclass(s *Record) {
	if r.Subclasses == nil {
		capacity := 0
		if r.Name != nil && r.Name.Slash == "java/lang/Object" {
			capacity = objectSubclassCapacity
		}
		r.Subclasses = make([]*Record, 0, capacity)
	}
	if r.IsInterface() {
		for _, existing := range r.Subclasses {
			if existing == s {
				return
			}
		}
	}
	r.Subclasses = append(r.Subclasses, s)
}

// SetSuper wires the resolved superclass reference.
func (r *Record) SetSuper(s *Record) { r.SuperRef = s }

// SetSuperInterface wires the resolved reference for interface slot idx,
// lazily allocating InterfaceRefs to match len(InterfaceNames).
func (r *Record) SetSuperInterface(s *Record, idx int) {
	if r.InterfaceRefs == nil {
		r.InterfaceRefs = make([]*Record, len(r.InterfaceNames))
	}
	r.InterfaceRefs[idx] = s
}

// IsSubclassOf reports whether this class's interned name equals super, or
// some ancestor on the SuperRef chain does. super must already be interned
// by the same table as r.Name -- callers compare by pointer identity, per
// the documented open-question resolution (§9).
func (r *Record) IsSubclassOf(super *intern.Name) bool {
	if r.Name == super {
		return true
	}
	if r.SuperRef == nil || r.SuperRef == r {
		return false
	}
	return r.SuperRef.IsSubclassOf(super)
}

// ImplementsInterface reports whether this class transitively implements
// the interface named intfName, matching by internal-name string equality
// (interface names come straight off the InterfaceNames/InterfaceRefs
// slices rather than through the intern table, mirroring the original's
// string-equality check on interned literals).
func (r *Record) ImplementsInterface(intfName string) bool {
	for _, n := range r.InterfaceNames {
		if n == intfName {
			return true
		}
	}
	for _, ref := range r.InterfaceRefs {
		if ref != nil && ref.ImplementsInterface(intfName) {
			return true
		}
	}
	if r.SuperRef == nil || (r.SuperRef.Name != nil && r.SuperRef.Name.Slash == "java/lang/Object") {
		return false
	}
	return r.SuperRef.ImplementsInterface(intfName)
}
