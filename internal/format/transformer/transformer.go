// Package transformer converts access widener documents into access transform
// sets and serializes them in the transformer config dialect consumed by the
// forge-style loader.
//
// Conversion mapping:
//
//	accessible  -> public
//	extendable  -> protected on methods, public on classes; removes final
//	mutable     -> removes final
//
// Conflicting rules for the same target merge most-permissive-wins: the widest
// access survives and final removal is sticky.
package transformer

import (
	"strings"

	"go.trai.ch/remap/internal/core/domain"
)

// Accumulate merges every rule of a document into the set.
func Accumulate(set *domain.TransformSet, doc *domain.WidenerDocument) {
	for _, rule := range doc.Rules {
		target := domain.TransformTarget{Owner: rule.Owner}
		if rule.Kind != domain.TargetClass {
			target.Name = rule.Name
			target.Descriptor = rule.Descriptor
		}
		set.Put(target, directive(rule))
	}
}

func directive(rule domain.WidenerRule) domain.Transform {
	switch rule.Access {
	case domain.AccessAccessible:
		return domain.Transform{Access: domain.AccessPublic}
	case domain.AccessExtendable:
		if rule.Kind == domain.TargetMethod {
			return domain.Transform{Access: domain.AccessProtected, Final: domain.FinalRemove}
		}
		return domain.Transform{Access: domain.AccessPublic, Final: domain.FinalRemove}
	case domain.AccessMutable:
		return domain.Transform{Access: domain.AccessKeep, Final: domain.FinalRemove}
	default:
		return domain.Transform{}
	}
}

// Serialize renders the set in the transformer config dialect: one line per
// target, sorted, dot-separated owners, LF endings.
func Serialize(set *domain.TransformSet) []byte {
	var sb strings.Builder
	for _, target := range set.Targets() {
		t, _ := set.Get(target)

		sb.WriteString(t.Access.Modifier())
		if t.Final == domain.FinalRemove {
			sb.WriteString("-f")
		}
		sb.WriteByte(' ')
		sb.WriteString(strings.ReplaceAll(target.Owner, "/", "."))

		switch {
		case target.Name == "":
			// class target
		case target.IsMethod():
			sb.WriteByte(' ')
			sb.WriteString(target.Name)
			sb.WriteString(target.Descriptor)
		default:
			sb.WriteByte(' ')
			sb.WriteString(target.Name)
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}
