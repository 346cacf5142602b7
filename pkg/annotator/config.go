package annotator

// Category groups annotation types by what kind of record they produce
type Category int

const (
	CategoryUnknown Category = iota
	CategoryEntity
	CategoryEvent
	CategoryRelation
)

func (c Category) String() string {
	switch c {
	case CategoryEntity:
		return "entity"
	case CategoryEvent:
		return "event"
	case CategoryRelation:
		return "relation"
	}
	return "unknown"
}

// TypeConfig answers questions about the configured annotation types.
// Implementations must be safe to query while the engine runs and are never
// modified by it.
type TypeConfig interface {
	IsEventType(typ string) bool
	IsRelationType(typ string) bool
	IsEquivType(typ string) bool
	IsPhysicalEntityType(typ string) bool
	TypeCategory(typ string) Category

	// RelationArgLabels returns the two argument labels of a relation type
	RelationArgLabels(typ string) (arg1, arg2 string, ok bool)
}
