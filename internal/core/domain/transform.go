package domain

import "sort"

// AccessLevel is the visibility an access transform sets on its target.
// Levels are ordered so that merging can keep the widest one.
type AccessLevel uint8

const (
	// AccessKeep leaves the declared visibility untouched.
	AccessKeep AccessLevel = iota
	// AccessProtected raises visibility to protected.
	AccessProtected
	// AccessPublic raises visibility to public.
	AccessPublic
)

// Modifier returns the access transformer syntax for the level.
func (l AccessLevel) Modifier() string {
	switch l {
	case AccessProtected:
		return "protected"
	case AccessPublic:
		return "public"
	default:
		return "default"
	}
}

// FinalAction states whether a transform strips finality from its target.
type FinalAction uint8

const (
	// FinalKeep leaves finality untouched.
	FinalKeep FinalAction = iota
	// FinalRemove strips the final modifier.
	FinalRemove
)

// TransformTarget identifies one transformed symbol. A class target has empty
// Name and Descriptor; a field target has an empty Descriptor.
type TransformTarget struct {
	Owner      string
	Name       string
	Descriptor string
}

// Transform is one access transform directive.
type Transform struct {
	Access AccessLevel
	Final  FinalAction
}

// Merge combines two transforms on the same target: the widest access wins and
// final removal is sticky. This is the documented tie-break for conflicting
// rules accumulated from multiple widener documents.
func (t Transform) Merge(other Transform) Transform {
	merged := t
	if other.Access > merged.Access {
		merged.Access = other.Access
	}
	if other.Final == FinalRemove {
		merged.Final = FinalRemove
	}
	return merged
}

// TransformSet is a mergeable mapping from targets to transforms, the
// machine-consumed counterpart of access widener documents.
type TransformSet struct {
	entries map[TransformTarget]Transform
}

// NewTransformSet creates an empty set.
func NewTransformSet() *TransformSet {
	return &TransformSet{entries: map[TransformTarget]Transform{}}
}

// Put merges a transform into the set.
func (s *TransformSet) Put(target TransformTarget, t Transform) {
	if existing, ok := s.entries[target]; ok {
		t = existing.Merge(t)
	}
	s.entries[target] = t
}

// Get returns the transform for a target.
func (s *TransformSet) Get(target TransformTarget) (Transform, bool) {
	t, ok := s.entries[target]
	return t, ok
}

// Len returns the number of targeted symbols.
func (s *TransformSet) Len() int { return len(s.entries) }

// Targets returns every target in deterministic order.
func (s *TransformSet) Targets() []TransformTarget {
	targets := make([]TransformTarget, 0, len(s.entries))
	for t := range s.entries {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Descriptor < b.Descriptor
	})
	return targets
}

// IsMethod reports whether the target is a method (method descriptors start
// with a parameter list).
func (t TransformTarget) IsMethod() bool {
	return t.Name != "" && len(t.Descriptor) > 0 && t.Descriptor[0] == '('
}

// Remap returns a new set with every owner, member name and descriptor mapped
// through the resolver. Targets that collide after remapping are merged.
func (s *TransformSet) Remap(r SymbolResolver) *TransformSet {
	out := NewTransformSet()
	for target, t := range s.entries {
		mapped := TransformTarget{Owner: r.Class(target.Owner)}
		switch {
		case target.Name == "":
			// class target
		case target.IsMethod():
			mapped.Name = r.Method(target.Owner, target.Name, target.Descriptor)
			mapped.Descriptor = RemapDescriptor(target.Descriptor, r.Class)
		default:
			mapped.Name = r.Field(target.Owner, target.Name, target.Descriptor)
			mapped.Descriptor = RemapDescriptor(target.Descriptor, r.Class)
		}
		out.Put(mapped, t)
	}
	return out
}
