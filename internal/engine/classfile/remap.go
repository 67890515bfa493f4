package classfile

import (
	"strings"

	"go.trai.ch/remap/internal/core/domain"
)

// Remap rewrites every symbol reference in the record through the resolver.
//
// Existing pool entries are never renumbered: renamed strings are appended as
// new constants and the fixed-size entries referencing them are repointed.
// Shared NameAndType constants are duplicated per referencing owner when their
// renames diverge, so bytecode and attribute payloads stay valid untouched.
func Remap(f *File, r domain.SymbolResolver) error {
	m := &mapper{f: f, orig: append([]Const(nil), f.Pool...)}

	if err := m.remapPool(r); err != nil {
		return err
	}
	return m.remapMembers(r)
}

type mapper struct {
	f *File
	// orig is a snapshot of the pool before any repointing, so owner and member
	// names are always read in the source namespace.
	orig []Const
	// natCache dedupes appended NameAndType entries.
	natCache map[natKey]uint16
}

type natKey struct {
	name string
	desc string
}

func (m *mapper) remapPool(r domain.SymbolResolver) error {
	for i := 1; i < len(m.orig); i++ {
		c := m.orig[i]
		switch c.Tag {
		case TagClass:
			name, err := m.utf8(c.A)
			if err != nil {
				return err
			}
			mapped := domain.RemapTypeName(name, r.Class)
			if mapped != name {
				idx, err := m.f.AddUTF8(mapped)
				if err != nil {
					return err
				}
				m.f.Pool[i].A = idx
			}

		case TagFieldRef, TagMethodRef, TagInterfaceMethodRef:
			if err := m.remapMemberRef(r, i, c); err != nil {
				return err
			}

		case TagMethodType:
			desc, err := m.utf8(c.A)
			if err != nil {
				return err
			}
			mapped := domain.RemapDescriptor(desc, r.Class)
			if mapped != desc {
				idx, err := m.f.AddUTF8(mapped)
				if err != nil {
					return err
				}
				m.f.Pool[i].A = idx
			}

		case TagDynamic, TagInvokeDynamic:
			// Dynamic call sites are not class members; only their descriptors
			// carry remappable names.
			name, desc, err := m.nameAndType(c.B)
			if err != nil {
				return err
			}
			mappedDesc := domain.RemapDescriptor(desc, r.Class)
			if mappedDesc != desc {
				idx, err := m.addNameAndType(name, mappedDesc)
				if err != nil {
					return err
				}
				m.f.Pool[i].B = idx
			}
		}
	}
	return nil
}

func (m *mapper) remapMemberRef(r domain.SymbolResolver, index int, c Const) error {
	owner, err := m.className(c.A)
	if err != nil {
		return err
	}
	name, desc, err := m.nameAndType(c.B)
	if err != nil {
		return err
	}

	mappedName := name
	// Array pseudo-owners (e.g. clone on an array type) have no rename entries.
	if !strings.HasPrefix(owner, "[") && !strings.HasPrefix(name, "<") {
		if c.Tag == TagFieldRef {
			mappedName = r.Field(owner, name, desc)
		} else {
			mappedName = r.Method(owner, name, desc)
		}
	}
	mappedDesc := domain.RemapDescriptor(desc, r.Class)

	if mappedName == name && mappedDesc == desc {
		return nil
	}
	idx, err := m.addNameAndType(mappedName, mappedDesc)
	if err != nil {
		return err
	}
	m.f.Pool[index].B = idx
	return nil
}

func (m *mapper) remapMembers(r domain.SymbolResolver) error {
	owner, err := m.className(m.f.This)
	if err != nil {
		return err
	}

	for i := range m.f.Fields {
		if err := m.remapMember(r, &m.f.Fields[i], owner, true); err != nil {
			return err
		}
	}
	for i := range m.f.Methods {
		if err := m.remapMember(r, &m.f.Methods[i], owner, false); err != nil {
			return err
		}
	}
	return nil
}

func (m *mapper) remapMember(r domain.SymbolResolver, member *Member, owner string, field bool) error {
	name, err := m.utf8(member.NameIndex)
	if err != nil {
		return err
	}
	desc, err := m.utf8(member.DescIndex)
	if err != nil {
		return err
	}

	mappedName := name
	if !strings.HasPrefix(name, "<") {
		if field {
			mappedName = r.Field(owner, name, desc)
		} else {
			mappedName = r.Method(owner, name, desc)
		}
	}
	if mappedName != name {
		idx, err := m.f.AddUTF8(mappedName)
		if err != nil {
			return err
		}
		member.NameIndex = idx
	}

	mappedDesc := domain.RemapDescriptor(desc, r.Class)
	if mappedDesc != desc {
		idx, err := m.f.AddUTF8(mappedDesc)
		if err != nil {
			return err
		}
		member.DescIndex = idx
	}
	return nil
}

func (m *mapper) addNameAndType(name, desc string) (uint16, error) {
	if m.natCache == nil {
		m.natCache = map[natKey]uint16{}
	}
	key := natKey{name: name, desc: desc}
	if idx, ok := m.natCache[key]; ok {
		return idx, nil
	}

	nameIdx, err := m.f.AddUTF8(name)
	if err != nil {
		return 0, err
	}
	descIdx, err := m.f.AddUTF8(desc)
	if err != nil {
		return 0, err
	}
	if len(m.f.Pool) >= maxPoolSize {
		return 0, ErrPoolFull
	}
	m.f.Pool = append(m.f.Pool, Const{Tag: TagNameAndType, A: nameIdx, B: descIdx})
	idx := uint16(len(m.f.Pool) - 1)
	m.natCache[key] = idx
	return idx, nil
}

func (m *mapper) utf8(index uint16) (string, error) {
	if int(index) >= len(m.orig) || m.orig[index].Tag != TagUTF8 {
		return "", zerrBadConstant(index, "utf8")
	}
	return m.orig[index].Str, nil
}

func (m *mapper) className(index uint16) (string, error) {
	if int(index) >= len(m.orig) || m.orig[index].Tag != TagClass {
		return "", zerrBadConstant(index, "class")
	}
	return m.utf8(m.orig[index].A)
}

func (m *mapper) nameAndType(index uint16) (string, string, error) {
	if int(index) >= len(m.orig) || m.orig[index].Tag != TagNameAndType {
		return "", "", zerrBadConstant(index, "name-and-type")
	}
	name, err := m.utf8(m.orig[index].A)
	if err != nil {
		return "", "", err
	}
	desc, err := m.utf8(m.orig[index].B)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}
