package entities

import "sort"

// RelationshipType represents the semantics of a link between two content units
type RelationshipType string

const (
	// RelationshipPrerequisite means the source must be learned before the target
	RelationshipPrerequisite RelationshipType = "prerequisite"

	// RelationshipDependent is the reverse of prerequisite
	RelationshipDependent RelationshipType = "dependent"

	RelationshipRelated     RelationshipType = "related"
	RelationshipSimilar     RelationshipType = "similar"
	RelationshipSequence    RelationshipType = "sequence"
	RelationshipReference   RelationshipType = "reference"
	RelationshipExample     RelationshipType = "example"
	RelationshipPractice    RelationshipType = "practice"
	RelationshipFollows     RelationshipType = "follows"
	RelationshipReferences  RelationshipType = "references"
	RelationshipContradicts RelationshipType = "contradicts"
	RelationshipDuplicate   RelationshipType = "duplicate"
	RelationshipConceptual  RelationshipType = "conceptual"
)

var allRelationshipTypes = []RelationshipType{
	RelationshipPrerequisite,
	RelationshipDependent,
	RelationshipRelated,
	RelationshipSimilar,
	RelationshipSequence,
	RelationshipReference,
	RelationshipExample,
	RelationshipPractice,
	RelationshipFollows,
	RelationshipReferences,
	RelationshipContradicts,
	RelationshipDuplicate,
	RelationshipConceptual,
}

// AllRelationshipTypes returns every known relationship type
func AllRelationshipTypes() []RelationshipType {
	out := make([]RelationshipType, len(allRelationshipTypes))
	copy(out, allRelationshipTypes)
	return out
}

// IsValid checks if the relationship type is known
func (t RelationshipType) IsValid() bool {
	for _, known := range allRelationshipTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsBidirectional reports whether creating a link of this type also creates
// a paired reverse link. Dependent is not bidirectional on its own: only the
// forward prerequisite creation writes it.
func (t RelationshipType) IsBidirectional() bool {
	switch t {
	case RelationshipRelated, RelationshipSimilar, RelationshipPrerequisite:
		return true
	default:
		return false
	}
}

// ReverseType returns the type carried by the reverse side of a pair
func (t RelationshipType) ReverseType() RelationshipType {
	switch t {
	case RelationshipPrerequisite:
		return RelationshipDependent
	case RelationshipDependent:
		return RelationshipPrerequisite
	default:
		return t
	}
}

// IsDependency reports whether the type participates in dependency chains
func (t RelationshipType) IsDependency() bool {
	return t == RelationshipPrerequisite || t == RelationshipDependent
}

// String returns the string representation of the relationship type
func (t RelationshipType) String() string {
	return string(t)
}

// RelationshipTypeNames returns the sorted string names, used for validation tags
func RelationshipTypeNames() []string {
	names := make([]string, 0, len(allRelationshipTypes))
	for _, t := range allRelationshipTypes {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}
