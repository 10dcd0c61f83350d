package routetree

// ConflictMode controls how differently named dynamic siblings are treated.
type ConflictMode string

const (
	// ConflictStrict rejects a second dynamic child under one node.
	ConflictStrict ConflictMode = "strict"

	// ConflictFirstWins keeps the first inserted dynamic child and drops later
	// ones with a warning. Insertion order is the record order given to the builder.
	ConflictFirstWins ConflictMode = "first-wins"
)

func (m ConflictMode) normalize() ConflictMode {
	switch m {
	case ConflictFirstWins:
		return ConflictFirstWins
	default:
		return ConflictStrict
	}
}

func (m ConflictMode) String() string {
	return string(m.normalize())
}

// ParseConflictMode maps a config value to a mode; unknown values are strict.
func ParseConflictMode(s string) ConflictMode {
	return ConflictMode(s).normalize()
}
