package domain

// TargetKind is the kind of symbol an access widener rule applies to.
type TargetKind uint8

const (
	// TargetClass widens a class.
	TargetClass TargetKind = iota
	// TargetField widens a field.
	TargetField
	// TargetMethod widens a method.
	TargetMethod
)

// String returns the keyword used in the document syntax.
func (k TargetKind) String() string {
	switch k {
	case TargetClass:
		return "class"
	case TargetField:
		return "field"
	case TargetMethod:
		return "method"
	default:
		return "unknown"
	}
}

// AccessKind is the widening a rule requests.
type AccessKind uint8

const (
	// AccessAccessible makes the target reachable from any package.
	AccessAccessible AccessKind = iota
	// AccessExtendable allows subclassing or overriding the target.
	AccessExtendable
	// AccessMutable removes finality from a field.
	AccessMutable
)

// String returns the keyword used in the document syntax.
func (a AccessKind) String() string {
	switch a {
	case AccessAccessible:
		return "accessible"
	case AccessExtendable:
		return "extendable"
	case AccessMutable:
		return "mutable"
	default:
		return "unknown"
	}
}

// AppliesTo reports whether the access kind is legal for the target kind.
func (a AccessKind) AppliesTo(k TargetKind) bool {
	switch k {
	case TargetClass, TargetMethod:
		return a == AccessAccessible || a == AccessExtendable
	case TargetField:
		return a == AccessAccessible || a == AccessMutable
	default:
		return false
	}
}

// WidenerRule is one line of an access widener document. Owner uses JVM
// internal form; Name and Descriptor are empty for class rules.
type WidenerRule struct {
	Kind       TargetKind
	Access     AccessKind
	Transitive bool
	Owner      string
	Name       string
	Descriptor string
}

// WidenerDocument is a parsed access widener: a version, the namespace its
// names are written in, and an ordered rule list.
type WidenerDocument struct {
	Version   int
	Namespace string
	Rules     []WidenerRule
}
