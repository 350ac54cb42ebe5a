// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package classrecord

// globalCatchMinMajor is the first class-file major version with
// StackMapTable support (JDK 6 / JVMS class file version 50).
const globalCatchMinMajor = 50

// AddGlobalCatchStackMapEntry queues a "full frame" stack-map entry for
// method i ending at endPC, for the external bytecode editor to splice into
// the method's StackMapTable on its next rewrite. It lazily allocates the
// StackMapTable and java/lang/Throwable constant-pool slots this class will
// need from the growing base_cp_count table, resolving java/lang/Throwable
// from the ORIGINAL constant pool first if it's already present there.
//
// For class files older than major version 50 (no StackMapTable support)
// this is a no-op.
func (r *Record) AddGlobalCatchStackMapEntry(methodIdx, endPC int) {
	if r.MajorVersion < globalCatchMinMajor {
		return
	}

	isStatic := r.Methods[methodIdx].IsStatic()
	isConstructor := r.Methods[methodIdx].Name == "<init>"

	if r.stackMapTableCPIndex == 0 {
		r.stackMapTableCPIndex = r.GetBaseCPCount(InjStackmap)
	}
	if r.throwableCPIndex == 0 {
		r.throwableCPIndex = r.CP.IndexOfClass("java/lang/Throwable")
		if r.throwableCPIndex == -1 {
			r.throwableCPIndex = r.GetBaseCPCount(InjThrowable)
		}
	}

	var locals []int
	if !isStatic {
		if isConstructor {
			locals = []int{0} // uninitialized_this
		} else {
			classIdx := r.CP.IndexOfClass(r.Name.Slash)
			locals = []int{classIdx}
		}
	}
	stacks := []int{r.throwableCPIndex}

	r.pendingStackMap = append(r.pendingStackMap, GlobalCatchEntry{
		MethodIndex: methodIdx,
		EndPC:       endPC,
		LocalsCP:    locals,
		StacksCP:    stacks,
	})
}

// PendingGlobalCatchEntries returns the queued global-catch stack-map
// entries not yet consumed by the bytecode editor.
func (r *Record) PendingGlobalCatchEntries() []GlobalCatchEntry {
	return r.pendingStackMap
}

// ClearPendingGlobalCatchEntries drops all queued entries, called by the
// editor once it has spliced them into a freshly saved method_info.
func (r *Record) ClearPendingGlobalCatchEntries() {
	r.pendingStackMap = nil
}
