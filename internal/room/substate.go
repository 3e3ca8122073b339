package room

// SubState is the mode-specific part of a room. Each phase manager owns
// exactly one implementation and type-switches on it.
type SubState interface{ isSubState() }

// RoyaleState tracks who is still in an elimination game.
type RoyaleState struct {
	Survivors  []string
	Eliminated []string
	// LastEliminated holds the ids knocked out at the latest elimination.
	LastEliminated []string
	Winner         string
}

func (*RoyaleState) isSubState() {}

func (s *RoyaleState) IsSurvivor(id string) bool {
	for _, sv := range s.Survivors {
		if sv == id {
			return true
		}
	}
	return false
}

// RelayState tracks guessing turns in relay mode.
type RelayState struct {
	Turn  int
	Turns int
	// Scores counts guesses submitted per player across turns.
	Scores map[string]int
}

func (*RelayState) isSubState() {}
