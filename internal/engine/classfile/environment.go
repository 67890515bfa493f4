package classfile

import "encoding/binary"

// EnvironmentAttribute is the marker attribute naming the only runtime
// environment a record may be loaded in. The payload is a single pool index
// pointing at the environment name.
const EnvironmentAttribute = "RuntimeEnvironment"

// SetEnvironment injects the environment marker attribute. Records that
// already carry the marker are left untouched, so the operation is idempotent.
func (f *File) SetEnvironment(env string) error {
	if f.HasAttribute(EnvironmentAttribute) {
		return nil
	}
	valueIdx, err := f.AddUTF8(env)
	if err != nil {
		return err
	}
	info := binary.BigEndian.AppendUint16(nil, valueIdx)
	return f.AddAttribute(EnvironmentAttribute, info)
}

// Environment returns the environment marker value, or "" when the record
// carries none.
func (f *File) Environment() string {
	for _, a := range f.Attrs {
		name, err := f.UTF8(a.NameIndex)
		if err != nil || name != EnvironmentAttribute || len(a.Info) != 2 {
			continue
		}
		value, err := f.UTF8(binary.BigEndian.Uint16(a.Info))
		if err != nil {
			continue
		}
		return value
	}
	return ""
}
