// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/editor"
	"github.com/elastic/jfluid-agent/internal/planner"
	"github.com/elastic/jfluid-agent/internal/plannerconfig"
	"github.com/elastic/jfluid-agent/internal/rootset"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	classes map[string][]byte
}

func (f *fakeFetcher) Fetch(_ context.Context, name string, _ classrecord.LoaderID) ([]byte, error) {
	b, ok := f.classes[name]
	if !ok {
		return nil, errors.New("class not found")
	}
	return b, nil
}

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// classBuilder assembles minimal well-formed class files for session-level
// scenario tests (spec.md §8's end-to-end scenarios), without a real
// javac: just enough constant-pool and method_info structure for the
// decoder and planner to exercise their real code paths.
type classBuilder struct {
	name, super string
	interfaces  []string
	access      uint16
	major       uint16
	methods     []builtMethod
}

type builtMethod struct {
	name, desc string
	access     uint16
	bytecode   []byte
}

func (b *classBuilder) utf8Entries() ([]byte, map[string]uint16) {
	idx := map[string]uint16{}
	var cp []byte
	n := uint16(0)
	add := func(s string) uint16 {
		if existing, ok := idx[s]; ok {
			return existing
		}
		cp = append(cp, 1)
		cp = append(cp, u16(uint16(len(s)))...)
		cp = append(cp, []byte(s)...)
		n++
		idx[s] = n
		return n
	}
	add(b.name)
	add(b.super)
	for _, i := range b.interfaces {
		add(i)
	}
	for _, m := range b.methods {
		add(m.name)
		add(m.desc)
	}
	add("Code")
	return cp, idx
}

func (b *classBuilder) build() []byte {
	utf8CP, idx := b.utf8Entries()

	classEntry := func(nameIdx uint16) []byte { return append([]byte{7}, u16(nameIdx)...) }

	var cp []byte
	cp = append(cp, utf8CP...)
	n := uint16(len(idx))

	thisClassIdx := n + 1
	cp = append(cp, classEntry(idx[b.name])...)
	n++

	var superClassIdx uint16
	if b.super != "" {
		superClassIdx = n + 1
		cp = append(cp, classEntry(idx[b.super])...)
		n++
	}

	ifaceIdx := make([]uint16, len(b.interfaces))
	for i, iface := range b.interfaces {
		cp = append(cp, classEntry(idx[iface])...)
		n++
		ifaceIdx[i] = n
	}

	buf := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	buf = append(buf, u16(0)...)
	buf = append(buf, u16(b.major)...)
	buf = append(buf, u16(n+1)...) // cp_count = highest index + 1
	buf = append(buf, cp...)
	buf = append(buf, u16(b.access)...)
	buf = append(buf, u16(thisClassIdx)...)
	buf = append(buf, u16(superClassIdx)...)
	buf = append(buf, u16(uint16(len(ifaceIdx)))...)
	for _, i := range ifaceIdx {
		buf = append(buf, u16(i)...)
	}
	buf = append(buf, u16(0)...) // fields_count

	buf = append(buf, u16(uint16(len(b.methods)))...)
	for _, m := range b.methods {
		buf = append(buf, u16(m.access)...)
		buf = append(buf, u16(idx[m.name])...)
		buf = append(buf, u16(idx[m.desc])...)
		if m.bytecode == nil {
			buf = append(buf, u16(0)...) // attributes_count
			continue
		}
		buf = append(buf, u16(1)...) // attributes_count
		buf = append(buf, u16(idx["Code"])...)
		code := b.codeAttribute(m.bytecode)
		attrLenBytes := make([]byte, 4)
		binary.BigEndian.PutUint32(attrLenBytes, uint32(len(code)))
		buf = append(buf, attrLenBytes...)
		buf = append(buf, code...)
	}
	buf = append(buf, u16(0)...) // class attributes_count
	return buf
}

func (b *classBuilder) codeAttribute(bytecode []byte) []byte {
	var code []byte
	code = append(code, u16(4)...) // max_stack
	code = append(code, u16(4)...) // max_locals
	codeLen := make([]byte, 4)
	binary.BigEndian.PutUint32(codeLen, uint32(len(bytecode)))
	code = append(code, codeLen...)
	code = append(code, bytecode...)
	code = append(code, u16(0)...) // exception_table_length
	code = append(code, u16(0)...) // attributes_count
	return code
}

func newTestSession(t *testing.T, fetcher *fakeFetcher, cfg plannerconfig.Config) *Session {
	t.Helper()
	s, err := New(fetcher, 64, &editor.ProbeInjector{}, cfg)
	require.NoError(t, err)
	return s
}

// TestNoRootsSimpleMainClass is spec.md §8 scenario 1: no explicit roots,
// a conforming public static void main captures the class and
// ClassLoader.loadClass is marked unconditionally.
func TestNoRootsSimpleMainClass(t *testing.T) {
	mainClass := (&classBuilder{
		name: "Main", super: "java/lang/Object", major: 52,
		methods: []builtMethod{
			{name: "main", desc: "([Ljava/lang/String;)V", access: 0x0009, bytecode: []byte{0x2a, 0xb1}},
		},
	}).build()
	classLoader := (&classBuilder{
		name: "java/lang/ClassLoader", super: "java/lang/Object", major: 52,
		methods: []builtMethod{
			{name: "loadClass", desc: "(Ljava/lang/String;)Ljava/lang/Class;", access: 0x0001,
				bytecode: []byte{0x2a, 0xb0}},
		},
	}).build()
	object := (&classBuilder{name: "java/lang/Object", super: "", major: 52}).build()

	fetcher := &fakeFetcher{classes: map[string][]byte{
		"Main":                   mainClass,
		"java/lang/ClassLoader":  classLoader,
		"java/lang/Object":       object,
	}}
	s := newTestSession(t, fetcher, plannerconfig.Default())

	ctx := context.Background()
	_, err := s.Initial(ctx, planner.InitialSnapshot{}, rootset.New())
	require.NoError(t, err)

	batch, err := s.OnClassLoad(ctx, "Main", 0)
	require.NoError(t, err)
	require.Len(t, batch.Methods, 1)

	rec, ok := lookupRec(s, "Main")
	require.True(t, ok)
	require.True(t, rec.IsMethodRoot(0))
	require.True(t, rec.IsMethodReachable(0))
	require.True(t, rec.IsMethodLeaf(0))
	require.True(t, rec.IsMethodInstrumented(0))

	clRec, ok := lookupRec(s, "java/lang/ClassLoader")
	require.True(t, ok)
	idx := clRec.MethodIndex("loadClass", "(Ljava/lang/String;)Ljava/lang/Class;")
	require.GreaterOrEqual(t, idx, 0)
	require.True(t, clRec.IsMethodInstrumented(idx))
}

// TestExactMethodRootBypassesFilterExclude covers spec.md §4.5 step 5: an
// explicit root is meant to bypass the include/exclude filter, even when
// the root's own class is excluded and carries no AllMethods flag (so the
// OnClassLoad full sweep never fires). The root method must still be
// instrumented.
func TestExactMethodRootBypassesFilterExclude(t *testing.T) {
	targetClass := (&classBuilder{
		name: "com/excluded/Target", super: "java/lang/Object", major: 52,
		methods: []builtMethod{
			{name: "rooted", desc: "()V", access: 0x0001, bytecode: []byte{0x2a, 0xb1}},
			{name: "other", desc: "()V", access: 0x0001, bytecode: []byte{0x2a, 0xb1}},
		},
	}).build()
	object := (&classBuilder{name: "java/lang/Object", super: "", major: 52}).build()
	classLoader := (&classBuilder{
		name: "java/lang/ClassLoader", super: "java/lang/Object", major: 52,
		methods: []builtMethod{
			{name: "loadClass", desc: "(Ljava/lang/String;)Ljava/lang/Class;", access: 0x0001,
				bytecode: []byte{0x2a, 0xb0}},
		},
	}).build()

	fetcher := &fakeFetcher{classes: map[string][]byte{
		"com/excluded/Target":   targetClass,
		"java/lang/Object":      object,
		"java/lang/ClassLoader": classLoader,
	}}
	cfg := plannerconfig.Default()
	cfg.FilterExclude = []string{"com/excluded/*"}
	s := newTestSession(t, fetcher, cfg)

	roots := rootset.New()
	roots.Add(rootset.Entry{ClassName: "com/excluded/Target", MethodName: "rooted", MethodSignature: "()V"})

	ctx := context.Background()
	_, err := s.Initial(ctx, planner.InitialSnapshot{}, roots)
	require.NoError(t, err)

	batch, err := s.OnClassLoad(ctx, "com/excluded/Target", 0)
	require.NoError(t, err)
	require.Len(t, batch.Methods, 1)

	rec, ok := lookupRec(s, "com/excluded/Target")
	require.True(t, ok)

	rootedIdx := rec.MethodIndex("rooted", "()V")
	require.GreaterOrEqual(t, rootedIdx, 0)
	require.True(t, rec.IsMethodRoot(rootedIdx))
	require.True(t, rec.IsMethodInstrumented(rootedIdx))

	otherIdx := rec.MethodIndex("other", "()V")
	require.GreaterOrEqual(t, otherIdx, 0)
	require.False(t, rec.IsMethodReachable(otherIdx), "non-root method of an excluded class must stay untouched")
}

func lookupRec(s *Session, name string) (*classrecord.Record, bool) {
	return s.repo.Lookup(name, 0)
}
