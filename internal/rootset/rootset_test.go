// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package rootset

import (
	"testing"

	"github.com/elastic/jfluid-agent/internal/intern"
	"github.com/stretchr/testify/assert"
)

func TestNoExplicitRoots(t *testing.T) {
	assert.True(t, NoExplicitRoots(nil))
	assert.True(t, NoExplicitRoots(New()))

	markersOnly := New()
	markersOnly.Add(Entry{ClassName: "com/app/Foo", Marker: true})
	assert.True(t, NoExplicitRoots(markersOnly))

	mixed := New()
	mixed.Add(Entry{ClassName: "com/app/Foo", Marker: true})
	mixed.Add(Entry{ClassName: "com/app/Bar", Marker: false})
	assert.False(t, NoExplicitRoots(mixed))
}

func TestCompileExactMatch(t *testing.T) {
	table := intern.NewTable()
	rs := New()
	rs.Add(Entry{ClassName: "com/app/Main", MethodName: "main"})
	c := Compile(rs, table)

	name := table.Intern("com/app/Main")
	idx := c.MatchingIndices(name, "com/app/Main")
	assert.Equal(t, []int{0}, idx)

	other := table.Intern("com/app/Other")
	assert.Empty(t, c.MatchingIndices(other, "com/app/Other"))
}

func TestCompilePackageWildcard(t *testing.T) {
	table := intern.NewTable()
	rs := New()
	rs.Add(Entry{ClassName: "com/app/*", ClassWildcard: true, MethodName: "*", Marker: true})
	c := Compile(rs, table)

	helper := table.Intern("com/app/util/Helper")
	assert.Equal(t, []int{0}, c.MatchingIndices(helper, "com/app/util/Helper"))

	unrelated := table.Intern("com/other/Thing")
	assert.Empty(t, c.MatchingIndices(unrelated, "com/other/Thing"))
	assert.True(t, c.Entry(0).IsMethodWildcard())
}

func TestFilterIncludeExclude(t *testing.T) {
	f := NewFilter([]string{"com/app/*"}, []string{"com/app/internal/*"})
	assert.True(t, f.Allows("com/app/Service"))
	assert.False(t, f.Allows("com/app/internal/Secret"))
	assert.False(t, f.Allows("com/other/Thing"))
}

func TestFilterNilAllowsEverything(t *testing.T) {
	var f *Filter
	assert.True(t, f.Allows("anything/At/All"))
}

func TestFilterNoIncludeAllowsExceptExcluded(t *testing.T) {
	f := NewFilter(nil, []string{"*Test"})
	assert.True(t, f.Allows("com/app/Service"))
	assert.False(t, f.Allows("com/app/ServiceTest"))
}
