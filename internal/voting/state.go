package voting

// State is the judging bookkeeping for one room. Images are identified by
// the id of the player who submitted them.
type State struct {
	Ratings   map[string]float64
	ShowCount map[string]int
	// Seen maps a voter to the images they have been shown.
	Seen map[string]map[string]bool
	// Matchups is symmetric: Matchups[a][b] == Matchups[b][a].
	Matchups map[string]map[string]bool

	Assignments map[string]Assignment
	Round       int
	TotalRounds int
	Voted       map[string]bool

	FinaleTally  map[string]int
	FinaleVoters map[string]bool
	Finalists    []string

	order []string
}

func newState(images []string, start float64) *State {
	st := &State{
		Ratings:      make(map[string]float64, len(images)),
		ShowCount:    make(map[string]int, len(images)),
		Seen:         make(map[string]map[string]bool),
		Matchups:     make(map[string]map[string]bool, len(images)),
		Assignments:  make(map[string]Assignment),
		Voted:        make(map[string]bool),
		FinaleTally:  make(map[string]int),
		FinaleVoters: make(map[string]bool),
	}
	for _, id := range images {
		if _, dup := st.Ratings[id]; dup {
			continue
		}
		st.order = append(st.order, id)
		st.Ratings[id] = start
		st.ShowCount[id] = 0
		st.Matchups[id] = make(map[string]bool)
	}
	return st
}

// Images returns image ids in submission order.
func (st *State) Images() []string {
	return append([]string(nil), st.order...)
}

func (st *State) index(id string) int {
	for i, v := range st.order {
		if v == id {
			return i
		}
	}
	return len(st.order)
}

func (st *State) seen(voter, image string) bool {
	return st.Seen[voter][image]
}

func (st *State) markShown(voter string, a, b string) {
	if st.Seen[voter] == nil {
		st.Seen[voter] = make(map[string]bool)
	}
	st.Seen[voter][a] = true
	st.Seen[voter][b] = true
	st.ShowCount[a]++
	st.ShowCount[b]++
	st.Matchups[a][b] = true
	st.Matchups[b][a] = true
}
