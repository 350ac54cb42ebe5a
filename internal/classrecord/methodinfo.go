// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package classrecord

import "github.com/elastic/jfluid-agent/internal/bigendian"

// activeBuffer returns the method_info bytes currently backing accessors
// for method i: the modified buffer if one has been saved, else the
// original.
func (r *Record) activeBuffer(i int) []byte {
	if r.modifiedInfo[i] != nil {
		return r.modifiedInfo[i]
	}
	return r.origMethodInfo[i]
}

// MethodInfo returns the bytes of method i's method_info structure, routed
// to the modified buffer if present.
func (r *Record) MethodInfo(i int) []byte { return r.activeBuffer(i) }

// MethodInfoLen returns len(MethodInfo(i)).
func (r *Record) MethodInfoLen(i int) int { return len(r.activeBuffer(i)) }

// OrigMethodInfo returns the original (never-instrumented) method_info
// bytes for method i, bypassing any saved modification.
func (r *Record) OrigMethodInfo(i int) []byte { return r.origMethodInfo[i] }

// OrigMethodInfoLen returns len(OrigMethodInfo(i)).
func (r *Record) OrigMethodInfoLen(i int) int { return len(r.origMethodInfo[i]) }

// bytecodeLen returns the current code_length for method i, caching the
// modified-buffer value in mod_bc_len on first use (0 is the "unresolved"
// sentinel; real JVM methods always have non-empty bytecode once they have
// a Code attribute at all).
func (r *Record) bytecodeLen(i int) int {
	if r.modifiedInfo[i] != nil {
		if r.modBCLen[i] == 0 {
			off := r.Methods[i].BytecodeOffset
			r.modBCLen[i] = int(bigendian.U4(r.modifiedInfo[i], off-4))
		}
		return r.modBCLen[i]
	}
	return r.Methods[i].OrigBytecodeLen
}

// MethodBytecode returns the code[] bytes of method i, routed per §4.2.
func (r *Record) MethodBytecode(i int) []byte {
	buf := r.activeBuffer(i)
	off := r.Methods[i].BytecodeOffset
	n := r.bytecodeLen(i)
	if off < 0 || off+n > len(buf) {
		return nil
	}
	return buf[off : off+n]
}

// MethodBytecodeLen returns len(MethodBytecode(i)) without slicing.
func (r *Record) MethodBytecodeLen(i int) int { return r.bytecodeLen(i) }

// ExceptionTableStart returns the offset, within MethodInfo(i), of the
// exception_table_length field (the two bytes immediately following
// code[]).
func (r *Record) ExceptionTableStart(i int) int {
	return r.Methods[i].BytecodeOffset + r.bytecodeLen(i)
}

func (r *Record) exceptionTableCount(i int) int {
	buf := r.activeBuffer(i)
	return int(bigendian.U2(buf, r.ExceptionTableStart(i)))
}

// attrTableStart locates the payload of the sub-attribute named by
// targetCPIndex within method i's Code attribute, walking the
// attribute_info list linearly starting right after the exception table.
// It returns 0 if targetCPIndex is 0 (attribute not present in the original
// constant pool at all) or the attribute is absent from this method.
func (r *Record) attrTableStart(i int, targetCPIndex uint16) int {
	if targetCPIndex == 0 {
		return 0
	}
	buf := r.activeBuffer(i)
	off := r.ExceptionTableStart(i) + r.exceptionTableCount(i)*8 + 2
	attrCount := int(bigendian.U2(buf, off))
	off += 2
	for k := 0; k < attrCount; k++ {
		attrNameIdx := bigendian.U2(buf, off)
		off += 2
		attrLen := int(bigendian.U4(buf, off))
		off += 4
		if attrNameIdx == targetCPIndex {
			return off + 2
		}
		off += attrLen
	}
	return 0
}

// LocalVariableTableStart returns the offset, within MethodInfo(i), of the
// first LocalVariableTable entry, computing and caching it on first call.
func (r *Record) LocalVariableTableStart(i int) int {
	if r.modifiedInfo[i] != nil {
		if r.modLVTOff[i] == 0 {
			r.modLVTOff[i] = r.attrTableStart(i, r.lvtCPIndex)
		}
		return r.modLVTOff[i]
	}
	if r.lvtOff[i] == 0 {
		r.lvtOff[i] = r.attrTableStart(i, r.lvtCPIndex)
	}
	return r.lvtOff[i]
}

// LocalVariableTypeTableStart returns the offset, within MethodInfo(i), of
// the first LocalVariableTypeTable entry, computing and caching it on first
// call.
func (r *Record) LocalVariableTypeTableStart(i int) int {
	if r.modifiedInfo[i] != nil {
		if r.modLVTTOff[i] == 0 {
			r.modLVTTOff[i] = r.attrTableStart(i, r.lvttCPIndex)
		}
		return r.modLVTTOff[i]
	}
	if r.lvttOff[i] == 0 {
		r.lvttOff[i] = r.attrTableStart(i, r.lvttCPIndex)
	}
	return r.lvttOff[i]
}

// StackMapTableStart returns the offset, within MethodInfo(i), of the
// StackMapTable entries, computing and caching it on first call.
func (r *Record) StackMapTableStart(i int) int {
	if r.modifiedInfo[i] != nil {
		if r.modSMTOff[i] == 0 {
			r.modSMTOff[i] = r.attrTableStart(i, r.smtCPIndex)
		}
		return r.modSMTOff[i]
	}
	if r.smtOff[i] == 0 {
		r.smtOff[i] = r.attrTableStart(i, r.smtCPIndex)
	}
	return r.smtOff[i]
}

// SaveMethodInfo stores buf as the re-instrumented method_info for method i
// and reallocates all four lazy-offset caches to fresh zeroed arrays.
//
// BUG(upstream): reallocating the caches clobbers any already-computed
// offsets for OTHER methods of this class, forcing them to be recomputed
// against their own (unchanged) modified buffers next time they're queried.
// This is not a correctness bug -- recomputation yields the same answer --
// but it is needless work. The behavior is preserved verbatim because the
// jfluid DynamicClassInfo this is ported from does the same reallocation
// (see _examples/original_source); see DESIGN.md for the open-question
// writeup.
func (r *Record) SaveMethodInfo(i int, buf []byte) {
	r.modifiedInfo[i] = buf
	r.hasModifiedInfoArray = true
	m := len(r.Methods)
	r.modBCLen = make([]int, m)
	r.modLVTOff = make([]int, m)
	r.modLVTTOff = make([]int, m)
	r.modSMTOff = make([]int, m)
}

// ResetTables clears the per-method offset caches derived from the
// original file. It is a no-op once any method of this class has a saved
// modified method_info, because the modified path does not share those
// caches.
func (r *Record) ResetTables() {
	if r.hasModifiedInfoArray {
		return
	}
	m := len(r.Methods)
	r.lvtOff = make([]int, m)
	r.lvttOff = make([]int, m)
	r.smtOff = make([]int, m)
}

// SetInstrMethodID assigns the instrumentation id for method i. 0 means
// uninstrumented.
func (r *Record) SetInstrMethodID(i int, id uint16) { r.instrID[i] = id }

// InstrMethodID returns the instrumentation id for method i.
func (r *Record) InstrMethodID(i int) uint16 { return r.instrID[i] }
