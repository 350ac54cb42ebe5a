// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package classrecord

// CPTag is a JVMS §4.4 constant_pool tag byte.
type CPTag uint8

const (
	CPUtf8               CPTag = 1
	CPInteger            CPTag = 3
	CPFloat              CPTag = 4
	CPLong               CPTag = 5
	CPDouble             CPTag = 6
	CPClass              CPTag = 7
	CPString             CPTag = 8
	CPFieldref           CPTag = 9
	CPMethodref          CPTag = 10
	CPInterfaceMethodref CPTag = 11
	CPNameAndType        CPTag = 12
	CPMethodHandle       CPTag = 15
	CPMethodType         CPTag = 16
	CPDynamic            CPTag = 17
	CPInvokeDynamic      CPTag = 18
	CPModule             CPTag = 19
	CPPackage            CPTag = 20
)

// CPEntry is one constant_pool slot. Only the fields relevant to this
// module's needs (name resolution, class lookups, attribute-name matching)
// are decoded; unrelated tags are recorded by Tag only.
type CPEntry struct {
	Tag CPTag

	// Utf8 holds the decoded string for a CPUtf8 entry.
	Utf8 string

	// NameIndex is the UTF8 index for a CPClass entry.
	NameIndex uint16

	// Long and Double entries occupy two constant-pool slots; the second
	// slot is a zero-valued placeholder with Tag 0 so indices stay aligned
	// with the JVMS numbering.
}

// ConstantPool is the 1-based constant_pool vector: index 0 is always the
// zero-value unused slot, matching JVMS numbering (valid indices are 1..n-1).
type ConstantPool []CPEntry

// UTF8 returns the decoded string for a CPUtf8 entry at idx, or "" if idx is
// out of range or not a CPUtf8 entry.
func (cp ConstantPool) UTF8(idx uint16) string {
	if int(idx) >= len(cp) {
		return ""
	}
	e := cp[idx]
	if e.Tag != CPUtf8 {
		return ""
	}
	return e.Utf8
}

// ClassName returns the internal name referenced by a CPClass entry at idx,
// or "" if idx does not reference a resolvable class entry.
func (cp ConstantPool) ClassName(idx uint16) string {
	if int(idx) >= len(cp) {
		return ""
	}
	e := cp[idx]
	if e.Tag != CPClass {
		return ""
	}
	return cp.UTF8(e.NameIndex)
}

// IndexOfUTF8 returns the constant-pool index of the CPUtf8 entry holding s,
// or 0 (an invalid index, since slot 0 is unused) if s is not present.
func (cp ConstantPool) IndexOfUTF8(s string) uint16 {
	for i := 1; i < len(cp); i++ {
		if cp[i].Tag == CPUtf8 && cp[i].Utf8 == s {
			return uint16(i)
		}
	}
	return 0
}

// IndexOfClass returns the constant-pool index of the CPClass entry naming
// the given internal class name, or -1 if not present. This mirrors the
// original getCPIndexOfClass, which distinguishes "never looked up" (callers
// use 0 for that) from "looked up and absent" (-1).
func (cp ConstantPool) IndexOfClass(internalName string) int {
	for i := 1; i < len(cp); i++ {
		if cp[i].Tag == CPClass && cp.UTF8(cp[i].NameIndex) == internalName {
			return i
		}
	}
	return -1
}

// Len returns the number of constant-pool entries, including the unused
// index-0 slot.
func (cp ConstantPool) Len() int {
	return len(cp)
}
