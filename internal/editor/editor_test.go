// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package editor

import (
	"testing"

	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/intern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord(t *testing.T) *classrecord.Record {
	t.Helper()
	table := intern.NewTable()
	name := table.Intern("com/app/Foo")
	methods := []classrecord.MethodInfo{{Name: "bar", Descriptor: "()V"}}
	orig := [][]byte{{0x2a, 0xb1}}
	return classrecord.New(name, 0, 52, 0, 0, "java/lang/Object", nil,
		nil, methods, orig, 0, 0, 0)
}

func TestProbeInjectorCopiesOriginalBytes(t *testing.T) {
	rec := newTestRecord(t)
	var p ProbeInjector

	modified, cpAdded, err := p.InjectProbe(rec, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, cpAdded)
	assert.Equal(t, rec.OrigMethodInfo(0), modified)

	modified[0] = 0xFF
	assert.NotEqual(t, rec.OrigMethodInfo(0)[0], modified[0], "must return a copy, not an alias")
}

func TestProbeInjectorShouldFailRefusesMethod(t *testing.T) {
	rec := newTestRecord(t)
	p := ProbeInjector{ShouldFail: func(class string, idx int) bool {
		return class == "com/app/Foo" && idx == 0
	}}

	_, _, err := p.InjectProbe(rec, 0, 1)
	assert.Error(t, err)
}
