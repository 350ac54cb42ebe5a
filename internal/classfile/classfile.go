// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package classfile decodes raw JVMS class-file bytes into a
// classrecord.Record skeleton (C1 in the planner design). It reads in the
// canonical JVMS §4.1 order: magic, versions, constant pool, access flags,
// this/super, interfaces, fields, methods, class attributes.
package classfile

import (
	"fmt"

	"github.com/elastic/jfluid-agent/internal/bigendian"
	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/intern"
)

const classMagic = 0xCAFEBABE

// ParseError reports a class-file well-formedness violation at a specific
// byte offset, matching spec.md §4.1's "fatal parse fault carrying the
// offending offset".
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("classfile: malformed class file at offset %d: %s", e.Offset, e.Reason)
}

// NameMismatchError reports that this_class names a different class than
// the caller expected to find at this repository slot -- a distinct error
// from a generic ParseError per spec.md §4.1.
type NameMismatchError struct {
	Expected string
	Actual   string
}

func (e *NameMismatchError) Error() string {
	return fmt.Sprintf("classfile: expected class %q, this_class declares %q", e.Expected, e.Actual)
}

func fault(off int, reason string) error { return &ParseError{Offset: off, Reason: reason} }

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) u1() (uint8, error) {
	if !bigendian.Fits(d.buf, d.off, 1) {
		return 0, fault(d.off, "unexpected end of file reading u1")
	}
	v := bigendian.U1(d.buf, d.off)
	d.off++
	return v, nil
}

func (d *decoder) u2() (uint16, error) {
	if !bigendian.Fits(d.buf, d.off, 2) {
		return 0, fault(d.off, "unexpected end of file reading u2")
	}
	v := bigendian.U2(d.buf, d.off)
	d.off += 2
	return v, nil
}

func (d *decoder) u4() (uint32, error) {
	if !bigendian.Fits(d.buf, d.off, 4) {
		return 0, fault(d.off, "unexpected end of file reading u4")
	}
	v := bigendian.U4(d.buf, d.off)
	d.off += 4
	return v, nil
}

func (d *decoder) skip(n int) error {
	if !bigendian.Fits(d.buf, d.off, n) {
		return fault(d.off, "attribute length overflows file bounds")
	}
	d.off += n
	return nil
}

// Decode parses data as a compliant .class file. expectedInternalName (dot
// or slash form) is canonicalized and compared against this_class; on
// mismatch Decode returns a *NameMismatchError. On success it returns a
// fully populated *classrecord.Record with loader set to loader.
func Decode(data []byte, expectedInternalName string, loader classrecord.LoaderID, table *intern.Table) (*classrecord.Record, error) {
	d := &decoder{buf: data}

	magic, err := d.u4()
	if err != nil {
		return nil, err
	}
	if magic != classMagic {
		return nil, fault(0, fmt.Sprintf("bad magic 0x%08X", magic))
	}

	minor, err := d.u2()
	if err != nil {
		return nil, err
	}
	major, err := d.u2()
	if err != nil {
		return nil, err
	}

	cp, err := d.readConstantPool()
	if err != nil {
		return nil, err
	}

	access, err := d.u2()
	if err != nil {
		return nil, err
	}
	thisIdx, err := d.u2()
	if err != nil {
		return nil, err
	}
	superIdx, err := d.u2()
	if err != nil {
		return nil, err
	}

	thisName := cp.ClassName(thisIdx)
	if thisName == "" {
		return nil, fault(d.off, "this_class does not reference a resolvable CPClass entry")
	}
	expected := intern.ToSlash(expectedInternalName)
	if thisName != expected {
		return nil, &NameMismatchError{Expected: expected, Actual: thisName}
	}

	var superName string
	if superIdx != 0 {
		superName = cp.ClassName(superIdx)
	}

	ifaceCount, err := d.u2()
	if err != nil {
		return nil, err
	}
	interfaces := make([]string, 0, ifaceCount)
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := d.u2()
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, cp.ClassName(idx))
	}

	fieldCount, err := d.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(fieldCount); i++ {
		if err := d.skipField(); err != nil {
			return nil, err
		}
	}

	methodCount, err := d.u2()
	if err != nil {
		return nil, err
	}
	methods := make([]classrecord.MethodInfo, methodCount)
	origInfo := make([][]byte, methodCount)
	for i := 0; i < int(methodCount); i++ {
		mi, raw, err := d.readMethod(cp)
		if err != nil {
			return nil, err
		}
		methods[i] = mi
		origInfo[i] = raw
	}

	classAttrCount, err := d.u2()
	if err != nil {
		return nil, err
	}
	if err := d.skipAttributes(int(classAttrCount)); err != nil {
		return nil, err
	}

	lvtCPIndex := cp.IndexOfUTF8("LocalVariableTable")
	lvttCPIndex := cp.IndexOfUTF8("LocalVariableTypeTable")
	smtCPIndex := cp.IndexOfUTF8("StackMapTable")

	name := table.Intern(thisName)
	rec := classrecord.New(name, loader, major, minor, access, superName, interfaces,
		cp, methods, origInfo, lvtCPIndex, lvttCPIndex, smtCPIndex)
	return rec, nil
}

func (d *decoder) readConstantPool() (classrecord.ConstantPool, error) {
	count, err := d.u2()
	if err != nil {
		return nil, err
	}
	cp := make(classrecord.ConstantPool, count)
	for i := 1; i < int(count); i++ {
		tagOff := d.off
		tagByte, err := d.u1()
		if err != nil {
			return nil, err
		}
		tag := classrecord.CPTag(tagByte)
		switch tag {
		case classrecord.CPUtf8:
			length, err := d.u2()
			if err != nil {
				return nil, err
			}
			if !bigendian.Fits(d.buf, d.off, int(length)) {
				return nil, fault(d.off, "Utf8 constant overruns file bounds")
			}
			s := string(d.buf[d.off : d.off+int(length)])
			d.off += int(length)
			cp[i] = classrecord.CPEntry{Tag: tag, Utf8: s}
		case classrecord.CPClass:
			idx, err := d.u2()
			if err != nil {
				return nil, err
			}
			cp[i] = classrecord.CPEntry{Tag: tag, NameIndex: idx}
		case classrecord.CPString, classrecord.CPMethodType, classrecord.CPModule, classrecord.CPPackage:
			if _, err := d.u2(); err != nil {
				return nil, err
			}
			cp[i] = classrecord.CPEntry{Tag: tag}
		case classrecord.CPInteger, classrecord.CPFloat,
			classrecord.CPFieldref, classrecord.CPMethodref, classrecord.CPInterfaceMethodref,
			classrecord.CPNameAndType, classrecord.CPDynamic, classrecord.CPInvokeDynamic:
			if err := d.skip(4); err != nil {
				return nil, err
			}
			cp[i] = classrecord.CPEntry{Tag: tag}
		case classrecord.CPLong, classrecord.CPDouble:
			if err := d.skip(8); err != nil {
				return nil, err
			}
			cp[i] = classrecord.CPEntry{Tag: tag}
			// Long/Double occupy two constant-pool slots (JVMS §4.4.5).
			i++
			if i < int(count) {
				cp[i] = classrecord.CPEntry{}
			}
		case classrecord.CPMethodHandle:
			if err := d.skip(3); err != nil {
				return nil, err
			}
			cp[i] = classrecord.CPEntry{Tag: tag}
		default:
			return nil, fault(tagOff, fmt.Sprintf("unknown constant pool tag %d", tagByte))
		}
	}
	return cp, nil
}

func (d *decoder) skipAttributes(count int) error {
	for i := 0; i < count; i++ {
		if _, err := d.u2(); err != nil {
			return err
		}
		length, err := d.u4()
		if err != nil {
			return err
		}
		if err := d.skip(int(length)); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) skipField() error {
	if _, err := d.u2(); err != nil { // access_flags
		return err
	}
	if _, err := d.u2(); err != nil { // name_index
		return err
	}
	if _, err := d.u2(); err != nil { // descriptor_index
		return err
	}
	count, err := d.u2()
	if err != nil {
		return err
	}
	return d.skipAttributes(int(count))
}

// readMethod decodes one method_info structure, locating the Code
// attribute's bytecode offset (relative to the start of the method_info
// buffer, per classrecord.MethodInfo.BytecodeOffset) without resolving its
// LocalVariableTable/LocalVariableTypeTable/StackMapTable sub-attributes --
// those are found lazily at runtime by classrecord's attrTableStart.
func (d *decoder) readMethod(cp classrecord.ConstantPool) (classrecord.MethodInfo, []byte, error) {
	start := d.off
	access, err := d.u2()
	if err != nil {
		return classrecord.MethodInfo{}, nil, err
	}
	nameIdx, err := d.u2()
	if err != nil {
		return classrecord.MethodInfo{}, nil, err
	}
	descIdx, err := d.u2()
	if err != nil {
		return classrecord.MethodInfo{}, nil, err
	}

	mi := classrecord.MethodInfo{
		Name:        cp.UTF8(nameIdx),
		Descriptor:  cp.UTF8(descIdx),
		AccessFlags: access,
	}

	attrCount, err := d.u2()
	if err != nil {
		return classrecord.MethodInfo{}, nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		attrNameIdx, err := d.u2()
		if err != nil {
			return classrecord.MethodInfo{}, nil, err
		}
		attrLen, err := d.u4()
		if err != nil {
			return classrecord.MethodInfo{}, nil, err
		}
		if cp.UTF8(attrNameIdx) == "Code" {
			if err := d.readCodeAttribute(&mi, start); err != nil {
				return classrecord.MethodInfo{}, nil, err
			}
			continue
		}
		if err := d.skip(int(attrLen)); err != nil {
			return classrecord.MethodInfo{}, nil, err
		}
	}

	end := d.off
	mi.MethodInfoOffset = start
	mi.MethodInfoLen = end - start
	return mi, d.buf[start:end], nil
}

// readCodeAttribute parses the Code attribute body (already past
// attribute_name_index and attribute_length) and records mi.BytecodeOffset
// relative to methodInfoStart, plus mi.OrigBytecodeLen and mi.HasCode.
func (d *decoder) readCodeAttribute(mi *classrecord.MethodInfo, methodInfoStart int) error {
	if _, err := d.u2(); err != nil { // max_stack
		return err
	}
	if _, err := d.u2(); err != nil { // max_locals
		return err
	}
	codeLen, err := d.u4()
	if err != nil {
		return err
	}
	mi.BytecodeOffset = d.off - methodInfoStart
	mi.OrigBytecodeLen = int(codeLen)
	mi.HasCode = true
	if err := d.skip(int(codeLen)); err != nil {
		return err
	}

	excCount, err := d.u2()
	if err != nil {
		return err
	}
	if err := d.skip(int(excCount) * 8); err != nil {
		return err
	}

	subAttrCount, err := d.u2()
	if err != nil {
		return err
	}
	return d.skipAttributes(int(subAttrCount))
}
