// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSlash(t *testing.T) {
	assert.Equal(t, "java/lang/String", ToSlash("java.lang.String"))
	assert.Equal(t, "java/lang/String", ToSlash("java/lang/String"))
}

func TestInternReturnsSamePointerForSameName(t *testing.T) {
	table := NewTable()
	a := table.Intern("java.lang.Object")
	b := table.Intern("java/lang/Object")
	assert.Same(t, a, b)
	assert.Equal(t, "java/lang/Object", a.Slash)
}

func TestInternDistinctNamesGetDistinctPointers(t *testing.T) {
	table := NewTable()
	a := table.Intern("com/app/Foo")
	b := table.Intern("com/app/Bar")
	assert.NotSame(t, a, b)
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	table := NewTable()
	_, ok := table.Lookup("com/app/NeverInterned")
	assert.False(t, ok)

	interned := table.Intern("com/app/NeverInterned")
	found, ok := table.Lookup("com.app.NeverInterned")
	assert.True(t, ok)
	assert.Same(t, interned, found)
}

func TestNameStringOnNilReceiver(t *testing.T) {
	var n *Name
	assert.Equal(t, "", n.String())
}
