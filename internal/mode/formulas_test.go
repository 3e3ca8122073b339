package mode

import "testing"

func TestDefaultVotingRounds(t *testing.T) {
	cases := []struct {
		n, want int
	}{
		{2, 2},
		{3, 2},
		{6, 2},
		{7, 3},
		{10, 3},
		{11, 4},
		{20, 4},
		{30, 5},
		{50, 6},
		{51, 7},
		{200, 7},
	}
	for _, tc := range cases {
		if got := DefaultVotingRounds(tc.n); got != tc.want {
			t.Fatalf("DefaultVotingRounds(%d) = %d, want %d", tc.n, got, tc.want)
		}
	}
}

func TestFinalistCount(t *testing.T) {
	c := Config{Voting: VotingConfig{}}
	cases := []struct {
		n, want int
	}{
		{10, 3},  // 10% of 10 is 1, raised to the minimum
		{2, 2},   // never more finalists than submissions
		{45, 5},  // ceil(4.5)
		{200, 10}, // capped at the maximum
	}
	for _, tc := range cases {
		if got := c.FinalistCount(tc.n); got != tc.want {
			t.Fatalf("FinalistCount(%d) = %d, want %d", tc.n, got, tc.want)
		}
	}
}

func TestVotingRounds_ModeOverride(t *testing.T) {
	c := Config{Voting: VotingConfig{FixedRounds: 5}}.withDefaults()
	if got := c.VotingRounds(10); got != 5 {
		t.Fatalf("VotingRounds with fixed rounds = %d, want 5", got)
	}
}
