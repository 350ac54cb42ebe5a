// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package resultpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackDrainsDestructively(t *testing.T) {
	p := New()
	p.Enqueue(MethodRecord{ClassInternalName: "com/app/Foo", MethodIndex: 0})
	p.Enqueue(MethodRecord{ClassInternalName: "com/app/Foo", MethodIndex: 1})
	assert.Equal(t, 2, p.Pending())

	batch := p.Pack()
	assert.Len(t, batch.Methods, 2)
	assert.NotEqual(t, batch.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, 0, p.Pending())

	second := p.Pack()
	assert.Empty(t, second.Methods)
	assert.NotEqual(t, batch.ID, second.ID)
}
