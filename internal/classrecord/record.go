// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package classrecord owns the per-class mutable state the instrumentation
// planner consults and updates on every class-load event: constant pool,
// method table, per-method scan-state bits, saved/modified method_info
// buffers, and the subclass/supertype graph. It is the Go counterpart of
// the jfluid DynamicClassInfo (see _examples/original_source).
package classrecord

import "github.com/elastic/jfluid-agent/internal/intern"

// LoaderID identifies a class loader; 0 is the bootstrap loader.
type LoaderID int32

// MethodInfo is one row of the immutable method table produced by the
// class-file decoder (C1).
type MethodInfo struct {
	Name       string
	Descriptor string
	AccessFlags uint16

	// MethodInfoOffset is the absolute offset of this method_info structure
	// within the original class file bytes.
	MethodInfoOffset int
	// MethodInfoLen is the length, in bytes, of the original method_info
	// structure sliced out of the class file at MethodInfoOffset.
	MethodInfoLen int

	// BytecodeOffset is the offset of the Code attribute's code[] array,
	// relative to the start of the method_info buffer (original OR
	// modified -- the bytecode editor preserves this offset across
	// re-instrumentation).
	BytecodeOffset int
	// HasCode is false for native/abstract methods, which carry no Code
	// attribute and thus no meaningful BytecodeOffset.
	HasCode bool
	// OrigBytecodeLen is the code_length read once at parse time for the
	// ORIGINAL method_info. It never changes; the modified-buffer bytecode
	// length is cached separately per Record (see modBCLen).
	OrigBytecodeLen int
}

const (
	accPublic   uint16 = 0x0001
	accStatic   uint16 = 0x0008
	accNative   uint16 = 0x0100
	accAbstract uint16 = 0x0400
)

// IsPublic reports whether the method's access_flags include ACC_PUBLIC.
func (m MethodInfo) IsPublic() bool { return m.AccessFlags&accPublic != 0 }

// IsStatic reports whether the method's access_flags include ACC_STATIC.
func (m MethodInfo) IsStatic() bool { return m.AccessFlags&accStatic != 0 }

// IsNative reports whether the method's access_flags include ACC_NATIVE.
func (m MethodInfo) IsNative() bool { return m.AccessFlags&accNative != 0 }

// IsAbstract reports whether the method's access_flags include
// ACC_ABSTRACT.
func (m MethodInfo) IsAbstract() bool { return m.AccessFlags&accAbstract != 0 }

// GlobalCatchEntry is a pending "full frame" stack-map entry queued by
// AddGlobalCatchStackMapEntry for the external bytecode editor to splice in
// when it next rewrites the method's Code attribute.
type GlobalCatchEntry struct {
	MethodIndex int
	EndPC       int
	LocalsCP    []int
	StacksCP    []int
}

// Record is the per-(internal_name, loader_id) class metadata store: C2 in
// the planner design. All accessors assume external mutual exclusion (the
// planner holds one session-wide mutex); Record itself does no locking.
type Record struct {
	Name     *intern.Name
	LoaderID LoaderID

	MajorVersion uint16
	MinorVersion uint16
	AccessFlags  uint16
	SuperName    string // "" for java/lang/Object
	InterfaceNames []string

	CP      ConstantPool
	Methods []MethodInfo

	// origMethodInfo[i] is the original method_info bytes for method i,
	// sliced out of the class file at parse time, kept around so the
	// modified-info path always has the unmodified fallback and so
	// incremental re-instrumentation never has to re-read the class file.
	origMethodInfo [][]byte

	// Resolved links, filled in lazily by the planner as classes load.
	SuperRef      *Record
	InterfaceRefs []*Record
	Subclasses    []*Record

	// Per-method mutable state, parallel arrays of length len(Methods).
	scanBits     []uint16
	instrID      []uint16
	modifiedInfo [][]byte
	modBCLen     []int
	modLVTOff    []int
	modLVTTOff   []int
	modSMTOff    []int

	// Lazy caches for the ORIGINAL (unmodified) method_info attribute
	// offsets. Separate from the mod* arrays because ResetTables only
	// touches these.
	lvtOff  []int
	lvttOff []int
	smtOff  []int

	// hasModifiedInfoArray mirrors the Java discriminator
	// "modifiedAndSavedMethodInfos == null": becomes true the first time
	// SaveMethodInfo is called for ANY method of this class, and makes
	// ResetTables a no-op thereafter.
	hasModifiedInfoArray bool

	// Attribute-name constant-pool indices cached by the decoder (0 = not
	// present in the original constant pool).
	lvtCPIndex  uint16
	lvttCPIndex uint16
	smtCPIndex  uint16

	// Constant-pool growth accounting.
	currentCPCount int
	baseCPCount    [InjMaxNumber]int

	// stackMapTableCPIndex and throwableCPIndex are the GROWING constant
	// pool's indices for "StackMapTable" and "java/lang/Throwable",
	// allocated on first use by AddGlobalCatchStackMapEntry. These are
	// distinct from lvtCPIndex/lvttCPIndex/smtCPIndex, which describe the
	// ORIGINAL constant pool used to locate existing attributes.
	stackMapTableCPIndex int
	throwableCPIndex      int

	pendingStackMap []GlobalCatchEntry

	// Class-level flags.
	Loaded                         bool
	AllMethodsMarkers              bool
	AllMethodsRoots                bool
	HasUninstrumentedMarkerMethods bool
	HasUninstrumentedRootMethods   bool
	HasMethodReachable             bool
	ServletDoScanned               bool

	nInstrumentedMethods int
}

// New constructs a Record skeleton for a class with m methods, as produced
// by the class-file decoder (C1). Per-method mutable arrays are allocated to
// length m and zeroed; base_cp_count is filled with UnsetBaseCPCount;
// current_cp_count is set to len(cp).
func New(name *intern.Name, loader LoaderID, major, minor, access uint16,
	superName string, interfaces []string, cp ConstantPool, methods []MethodInfo,
	origMethodInfo [][]byte, lvtCPIndex, lvttCPIndex, smtCPIndex uint16) *Record {
	m := len(methods)
	r := &Record{
		Name:           name,
		LoaderID:       loader,
		MajorVersion:   major,
		MinorVersion:   minor,
		AccessFlags:    access,
		SuperName:      superName,
		InterfaceNames: interfaces,
		CP:             cp,
		Methods:        methods,
		origMethodInfo: origMethodInfo,
		scanBits:       make([]uint16, m),
		instrID:        make([]uint16, m),
		modifiedInfo:   make([][]byte, m),
		modBCLen:       make([]int, m),
		modLVTOff:      make([]int, m),
		modLVTTOff:     make([]int, m),
		modSMTOff:      make([]int, m),
		lvtOff:         make([]int, m),
		lvttOff:        make([]int, m),
		smtOff:         make([]int, m),
		lvtCPIndex:     lvtCPIndex,
		lvttCPIndex:    lvttCPIndex,
		smtCPIndex:     smtCPIndex,
		currentCPCount: cp.Len(),
	}
	for i := range r.baseCPCount {
		r.baseCPCount[i] = UnsetBaseCPCount
	}
	return r
}

// IsInterface reports whether ACC_INTERFACE is set.
func (r *Record) IsInterface() bool { return r.AccessFlags&0x0200 != 0 }

// MethodIndex returns the index of the method with the given name and
// descriptor, or -1 if not present. Missing methods are a normal, silent
// outcome (§7 "missing method in root").
func (r *Record) MethodIndex(name, descriptor string) int {
	for i, m := range r.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return i
		}
	}
	return -1
}

// SetLoaded sets or clears the loaded flag.
func (r *Record) SetLoaded(v bool) { r.Loaded = v }

// SetServletDoScanned sets the "scanned for HttpServlet.do*() methods" flag.
// The total-instrumentation planner never reads this back; it exists so
// callers that layer a selective scanner on top of this module have
// somewhere to persist the bit.
func (r *Record) SetServletDoScanned() { r.ServletDoScanned = true }
