// Package multiplier computes corrective score multipliers for teammates
// of a player who dropped mid-match, and keeps them consistent with the
// set of currently pending drop reports.
package multiplier

// Default policy constants. Both thresholds are game-design decisions and
// can be overridden through configuration.
const (
	defaultMinMissedRaces = 3
	defaultNoLossRaces    = 8
)

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithMinMissedRaces sets the minimum races played alone before any
// correction is warranted.
func WithMinMissedRaces(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.minMissedRaces = n
		}
	}
}

// WithNoLossRaces sets the races-played-alone count at which teammates
// receive full loss credit (multiplier 0).
func WithNoLossRaces(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.noLossRaces = n
		}
	}
}

// Policy maps a races-played-alone count to a score multiplier.
type Policy struct {
	minMissedRaces int
	noLossRaces    int
}

// NewPolicy creates a policy with the default thresholds.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		minMissedRaces: defaultMinMissedRaces,
		noLossRaces:    defaultNoLossRaces,
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Warranted reports whether a correction is owed at all for the given
// races-played-alone count.
func (p *Policy) Warranted(racesPlayedAlone int) bool {
	return racesPlayedAlone >= p.minMissedRaces
}

// Compute returns the corrective multiplier for teammates of a player
// whose team raced the given number of races short-handed. 1.0 below the
// minimum, 0.0 at or beyond the no-loss threshold, linear in between.
func (p *Policy) Compute(racesPlayedAlone int) float64 {
	if racesPlayedAlone < p.minMissedRaces {
		return 1.0
	}
	if racesPlayedAlone >= p.noLossRaces {
		return 0.0
	}
	span := p.noLossRaces - p.minMissedRaces + 1
	return 1.0 - float64(racesPlayedAlone-p.minMissedRaces+1)/float64(span)
}
