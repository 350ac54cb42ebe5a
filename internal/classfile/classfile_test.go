// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import (
	"encoding/binary"
	"testing"

	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/intern"
	"github.com/stretchr/testify/require"
)

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func utf8Entry(s string) []byte {
	return append(append([]byte{byte(classrecord.CPUtf8)}, u16(uint16(len(s)))...), []byte(s)...)
}

func classEntry(nameIdx uint16) []byte {
	return append([]byte{byte(classrecord.CPClass)}, u16(nameIdx)...)
}

// buildMainClass assembles a minimal well-formed class file for
// com/app/Main extending java/lang/Object with a single method
// "main([Ljava/lang/String;)V" carrying a trivial one-instruction Code
// attribute (bytecode 0xB1 == return).
func buildMainClass() []byte {
	var cp []byte
	cp = append(cp, utf8Entry("com/app/Main")...)    // 1
	cp = append(cp, classEntry(1)...)                // 2
	cp = append(cp, utf8Entry("java/lang/Object")...) // 3
	cp = append(cp, classEntry(3)...)                // 4
	cp = append(cp, utf8Entry("main")...)             // 5
	cp = append(cp, utf8Entry("([Ljava/lang/String;)V")...) // 6
	cp = append(cp, utf8Entry("Code")...)             // 7
	const cpCount = 8                                 // 7 entries + unused slot 0

	code := []byte{0xB1} // return
	codeInfo := append(u16(0), u16(1)...)
	codeInfo = append(codeInfo, u32(uint32(len(code)))...)
	codeInfo = append(codeInfo, code...)
	codeInfo = append(codeInfo, u16(0)...) // exception_table_count
	codeInfo = append(codeInfo, u16(0)...) // Code sub-attributes_count

	codeAttr := append(u16(7), u32(uint32(len(codeInfo)))...)
	codeAttr = append(codeAttr, codeInfo...)

	const accPublicStatic = 0x0009
	method := append(u16(accPublicStatic), u16(5)...)
	method = append(method, u16(6)...)
	method = append(method, u16(1)...) // attributes_count
	method = append(method, codeAttr...)

	buf := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	buf = append(buf, u16(0)...)  // minor
	buf = append(buf, u16(52)...) // major
	buf = append(buf, u16(cpCount)...)
	buf = append(buf, cp...)
	buf = append(buf, u16(0x0021)...) // ACC_PUBLIC|ACC_SUPER
	buf = append(buf, u16(2)...)      // this_class
	buf = append(buf, u16(4)...)      // super_class
	buf = append(buf, u16(0)...)      // interfaces_count
	buf = append(buf, u16(0)...)      // fields_count
	buf = append(buf, u16(1)...)      // methods_count
	buf = append(buf, method...)
	buf = append(buf, u16(0)...) // class attributes_count
	return buf
}

func TestDecodeMinimalClass(t *testing.T) {
	table := intern.NewTable()
	rec, err := Decode(buildMainClass(), "com/app/Main", 0, table)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert := require.New(t)
	assert.Equal("com/app/Main", rec.Name.Slash)
	assert.Equal("java/lang/Object", rec.SuperName)
	assert.Len(rec.Methods, 1)
	assert.Equal("main", rec.Methods[0].Name)
	assert.Equal("([Ljava/lang/String;)V", rec.Methods[0].Descriptor)
	assert.True(rec.Methods[0].IsPublic())
	assert.True(rec.Methods[0].IsStatic())
	assert.True(rec.Methods[0].HasCode)
	assert.Equal(1, rec.Methods[0].OrigBytecodeLen)
	assert.Equal(-1, rec.GetBaseCPCount(classrecord.InjStackmap))

	bc := rec.MethodBytecode(0)
	require.Len(t, bc, 1)
	assert.Equal(byte(0xB1), bc[0])
}

func TestDecodeNameMismatch(t *testing.T) {
	table := intern.NewTable()
	_, err := Decode(buildMainClass(), "com/app/NotMain", 0, table)
	require.Error(t, err)
	var mismatch *NameMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "com/app/Main", mismatch.Actual)
}

func TestDecodeBadMagic(t *testing.T) {
	buf := buildMainClass()
	buf[0] = 0x00
	table := intern.NewTable()
	_, err := Decode(buf, "com/app/Main", 0, table)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestDecodeTruncatedFile(t *testing.T) {
	buf := buildMainClass()
	table := intern.NewTable()
	_, err := Decode(buf[:10], "com/app/Main", 0, table)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}
