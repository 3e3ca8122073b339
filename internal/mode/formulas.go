package mode

import "math"

// DefaultVotingRounds is clamp(2, floor((n-1)/2), tier(n)).
func DefaultVotingRounds(n int) int {
	return min(max(2, (n-1)/2), roundTier(n))
}

func roundTier(n int) int {
	switch {
	case n <= 10:
		return 3
	case n <= 20:
		return 4
	case n <= 30:
		return 5
	case n <= 50:
		return 6
	default:
		return 7
	}
}

// VotingRounds applies the mode's own round function when it has one.
func (c *Config) VotingRounds(n int) int {
	if c.Voting.Rounds != nil {
		return c.Voting.Rounds(n)
	}
	return DefaultVotingRounds(n)
}

// FinalistCount is clamp(minFinalists, ceil(n*percent), maxFinalists),
// never more than the n submissions that exist.
func (c *Config) FinalistCount(n int) int {
	pct := c.Voting.FinalistPercent
	if pct <= 0 {
		pct = DefaultFinalistPercent
	}
	lo, hi := c.Voting.MinFinalists, c.Voting.MaxFinalists
	if lo <= 0 {
		lo = DefaultMinFinalists
	}
	if hi <= 0 {
		hi = DefaultMaxFinalists
	}
	count := min(max(lo, int(math.Ceil(float64(n)*pct))), hi)
	return min(count, n)
}
