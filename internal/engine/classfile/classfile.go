// Package classfile implements a structural codec for compiled class records:
// parsing, serialization, pool-level symbol remapping and marker-attribute
// injection. The codec is lossless; parsing a record and serializing it again
// yields byte-identical output.
//
// Attribute payloads are treated as opaque byte blobs. That is safe for
// remapping because attributes reference the constant pool by index and the
// codec never renumbers existing pool entries; new constants are only ever
// appended.
package classfile

import (
	"encoding/binary"

	"go.trai.ch/zerr"
)

// Magic is the record signature.
const Magic uint32 = 0xCAFEBABE

// Constant pool tags.
const (
	TagUTF8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldRef           = 9
	TagMethodRef          = 10
	TagInterfaceMethodRef = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// maxPoolSize is the largest constant pool the record format can address.
const maxPoolSize = 0xFFFF

var (
	// ErrBadMagic is returned for records without the classfile signature.
	ErrBadMagic = zerr.New("not a class record")
	// ErrTruncated is returned when a record ends mid-structure.
	ErrTruncated = zerr.New("truncated class record")
	// ErrBadConstant is returned for unknown constant pool tags or invalid
	// cross-pool references.
	ErrBadConstant = zerr.New("invalid constant pool entry")
	// ErrPoolFull is returned when remapping would overflow the constant pool.
	ErrPoolFull = zerr.New("constant pool full")
)

// Const is one constant pool slot. Exactly one of the payload fields is
// meaningful depending on Tag. A zero Tag marks the unused slot zero and the
// trailing slot of long and double constants.
type Const struct {
	Tag  uint8
	Str  string // TagUTF8
	Raw  []byte // TagInteger, TagFloat, TagLong, TagDouble payload
	Kind uint8  // TagMethodHandle reference kind
	A    uint16 // first index operand
	B    uint16 // second index operand
}

// Attribute is a named opaque payload.
type Attribute struct {
	NameIndex uint16
	Info      []byte
}

// Member is one declared field or method.
type Member struct {
	Access    uint16
	NameIndex uint16
	DescIndex uint16
	Attrs     []Attribute
}

// File is a fully parsed class record. Pool is indexed by constant pool slot;
// slot zero is always unused.
type File struct {
	Minor      uint16
	Major      uint16
	Pool       []Const
	Access     uint16
	This       uint16
	Super      uint16
	Interfaces []uint16
	Fields     []Member
	Methods    []Member
	Attrs      []Attribute
}

// Parse decodes a class record.
func Parse(data []byte) (*File, error) {
	r := &reader{data: data}

	if r.u4() != Magic {
		if r.err != nil {
			return nil, r.err
		}
		return nil, ErrBadMagic
	}

	f := &File{}
	f.Minor = r.u2()
	f.Major = r.u2()

	if err := parsePool(r, f); err != nil {
		return nil, err
	}

	f.Access = r.u2()
	f.This = r.u2()
	f.Super = r.u2()

	ifCount := int(r.u2())
	f.Interfaces = make([]uint16, 0, ifCount)
	for i := 0; i < ifCount; i++ {
		f.Interfaces = append(f.Interfaces, r.u2())
	}

	var err error
	if f.Fields, err = parseMembers(r); err != nil {
		return nil, err
	}
	if f.Methods, err = parseMembers(r); err != nil {
		return nil, err
	}
	if f.Attrs, err = parseAttrs(r); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(r.data) {
		return nil, zerr.With(zerr.Wrap(ErrTruncated, "trailing data after record"), "trailing_bytes", len(r.data)-r.off)
	}
	return f, nil
}

func parsePool(r *reader, f *File) error {
	count := int(r.u2())
	if r.err != nil {
		return r.err
	}
	f.Pool = make([]Const, 1, count)

	for len(f.Pool) < count {
		tag := r.u1()
		c := Const{Tag: tag}
		switch tag {
		case TagUTF8:
			c.Str = string(r.bytes(int(r.u2())))
		case TagInteger, TagFloat:
			c.Raw = r.bytes(4)
		case TagLong, TagDouble:
			c.Raw = r.bytes(8)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.A = r.u2()
		case TagFieldRef, TagMethodRef, TagInterfaceMethodRef, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.A = r.u2()
			c.B = r.u2()
		case TagMethodHandle:
			c.Kind = r.u1()
			c.A = r.u2()
		default:
			if r.err != nil {
				return r.err
			}
			return zerr.With(zerr.With(zerr.Wrap(ErrBadConstant, "unknown tag"), "tag", int(tag)), "index", len(f.Pool))
		}
		f.Pool = append(f.Pool, c)
		if tag == TagLong || tag == TagDouble {
			// Wide constants occupy two slots.
			f.Pool = append(f.Pool, Const{})
		}
	}
	return r.err
}

func parseMembers(r *reader) ([]Member, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	members := make([]Member, 0, count)
	for i := 0; i < count; i++ {
		m := Member{
			Access:    r.u2(),
			NameIndex: r.u2(),
			DescIndex: r.u2(),
		}
		attrs, err := parseAttrs(r)
		if err != nil {
			return nil, err
		}
		m.Attrs = attrs
		members = append(members, m)
	}
	return members, nil
}

func parseAttrs(r *reader) ([]Attribute, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	attrs := make([]Attribute, 0, count)
	for i := 0; i < count; i++ {
		a := Attribute{NameIndex: r.u2()}
		a.Info = r.bytes(int(r.u4()))
		attrs = append(attrs, a)
	}
	return attrs, r.err
}

// Bytes serializes the record.
func (f *File) Bytes() ([]byte, error) {
	if len(f.Pool) > maxPoolSize {
		return nil, ErrPoolFull
	}

	w := &writer{}
	w.u4(Magic)
	w.u2(f.Minor)
	w.u2(f.Major)

	w.u2(uint16(len(f.Pool)))
	for i := 1; i < len(f.Pool); i++ {
		c := f.Pool[i]
		if c.Tag == 0 {
			continue // second slot of a wide constant
		}
		w.u1(c.Tag)
		switch c.Tag {
		case TagUTF8:
			w.u2(uint16(len(c.Str)))
			w.raw([]byte(c.Str))
		case TagInteger, TagFloat, TagLong, TagDouble:
			w.raw(c.Raw)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			w.u2(c.A)
		case TagFieldRef, TagMethodRef, TagInterfaceMethodRef, TagNameAndType, TagDynamic, TagInvokeDynamic:
			w.u2(c.A)
			w.u2(c.B)
		case TagMethodHandle:
			w.u1(c.Kind)
			w.u2(c.A)
		default:
			return nil, zerr.With(zerr.With(zerr.Wrap(ErrBadConstant, "unknown tag"), "tag", int(c.Tag)), "index", i)
		}
	}

	w.u2(f.Access)
	w.u2(f.This)
	w.u2(f.Super)
	w.u2(uint16(len(f.Interfaces)))
	for _, idx := range f.Interfaces {
		w.u2(idx)
	}
	writeMembers(w, f.Fields)
	writeMembers(w, f.Methods)
	writeAttrs(w, f.Attrs)
	return w.buf, nil
}

func writeMembers(w *writer, members []Member) {
	w.u2(uint16(len(members)))
	for _, m := range members {
		w.u2(m.Access)
		w.u2(m.NameIndex)
		w.u2(m.DescIndex)
		writeAttrs(w, m.Attrs)
	}
}

func writeAttrs(w *writer, attrs []Attribute) {
	w.u2(uint16(len(attrs)))
	for _, a := range attrs {
		w.u2(a.NameIndex)
		w.u4(uint32(len(a.Info)))
		w.raw(a.Info)
	}
}

// UTF8 returns the string at a pool slot.
func (f *File) UTF8(index uint16) (string, error) {
	if int(index) >= len(f.Pool) || f.Pool[index].Tag != TagUTF8 {
		return "", zerr.With(zerr.With(zerr.Wrap(ErrBadConstant, "want utf8"), "index", int(index)), "want", "utf8")
	}
	return f.Pool[index].Str, nil
}

// ClassName returns the internal name of the record's own class.
func (f *File) ClassName() (string, error) {
	return f.classNameAt(f.This)
}

// SuperName returns the internal name of the superclass, or "" for the root class.
func (f *File) SuperName() (string, error) {
	if f.Super == 0 {
		return "", nil
	}
	return f.classNameAt(f.Super)
}

// InterfaceNames returns the internal names of all directly implemented interfaces.
func (f *File) InterfaceNames() ([]string, error) {
	names := make([]string, 0, len(f.Interfaces))
	for _, idx := range f.Interfaces {
		name, err := f.classNameAt(idx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (f *File) classNameAt(index uint16) (string, error) {
	if int(index) >= len(f.Pool) || f.Pool[index].Tag != TagClass {
		return "", zerr.With(zerr.With(zerr.Wrap(ErrBadConstant, "want class"), "index", int(index)), "want", "class")
	}
	return f.UTF8(f.Pool[index].A)
}

// AddUTF8 returns a pool slot holding the given string, reusing an existing
// constant when one exists and appending otherwise.
func (f *File) AddUTF8(s string) (uint16, error) {
	for i := 1; i < len(f.Pool); i++ {
		if f.Pool[i].Tag == TagUTF8 && f.Pool[i].Str == s {
			return uint16(i), nil
		}
	}
	if len(f.Pool) >= maxPoolSize {
		return 0, ErrPoolFull
	}
	f.Pool = append(f.Pool, Const{Tag: TagUTF8, Str: s})
	return uint16(len(f.Pool) - 1), nil
}

// HasAttribute reports whether a class-level attribute with the given name exists.
func (f *File) HasAttribute(name string) bool {
	for _, a := range f.Attrs {
		if s, err := f.UTF8(a.NameIndex); err == nil && s == name {
			return true
		}
	}
	return false
}

// AddAttribute appends a class-level attribute.
func (f *File) AddAttribute(name string, info []byte) error {
	nameIdx, err := f.AddUTF8(name)
	if err != nil {
		return err
	}
	f.Attrs = append(f.Attrs, Attribute{NameIndex: nameIdx, Info: info})
	return nil
}

func zerrBadConstant(index uint16, want string) error {
	return zerr.With(zerr.With(zerr.Wrap(ErrBadConstant, "want "+want), "index", int(index)), "want", want)
}

type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) u1() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u2() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u4() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = zerr.With(zerr.Wrap(ErrTruncated, "unexpected end of record"), "offset", r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

type writer struct {
	buf []byte
}

func (w *writer) u1(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u2(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

func (w *writer) u4(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

func (w *writer) raw(b []byte) { w.buf = append(w.buf, b...) }
