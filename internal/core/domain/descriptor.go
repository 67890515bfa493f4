package domain

import "strings"

// RemapTypeName rewrites a class reference that may carry array dimensions,
// e.g. "[[Lcom/example/Widget;" or a plain internal name. Primitive array
// types pass through unchanged.
func RemapTypeName(name string, class func(string) string) string {
	if !strings.HasPrefix(name, "[") {
		return class(name)
	}
	dims := 0
	for dims < len(name) && name[dims] == '[' {
		dims++
	}
	elem := name[dims:]
	if !strings.HasPrefix(elem, "L") || !strings.HasSuffix(elem, ";") {
		return name
	}
	inner := class(elem[1 : len(elem)-1])
	return name[:dims] + "L" + inner + ";"
}

// RemapDescriptor rewrites every class reference inside a field or method
// descriptor, e.g. "(Lcom/example/Widget;I)Lcom/example/Gadget;".
// Malformed descriptors are returned unchanged rather than rejected; the
// classfile layer validates structure separately.
func RemapDescriptor(descriptor string, class func(string) string) string {
	var sb strings.Builder
	sb.Grow(len(descriptor))

	for i := 0; i < len(descriptor); {
		c := descriptor[i]
		if c != 'L' {
			sb.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(descriptor[i:], ';')
		if end < 0 {
			sb.WriteString(descriptor[i:])
			break
		}
		name := descriptor[i+1 : i+end]
		sb.WriteByte('L')
		sb.WriteString(class(name))
		sb.WriteByte(';')
		i += end + 1
	}
	return sb.String()
}
