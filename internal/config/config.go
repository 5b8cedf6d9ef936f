// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory resolution command queue.
	QueueSize int `koanf:"queue_size"`

	// Backend selects the lounge client: "memory" or "http".
	Backend string `koanf:"backend"`

	// LoungeBaseURL, LoungeUsername, and LoungePassword configure the
	// remote lounge API client when Backend is "http".
	LoungeBaseURL  string `koanf:"lounge_base_url"`
	LoungeUsername string `koanf:"lounge_username"`
	LoungePassword string `koanf:"lounge_password"`

	// Leaderboards lists the leaderboard ids served by this process.
	Leaderboards []string `koanf:"leaderboards"`

	// MinMissedRaces is the races-played-alone count below which a drop
	// carries no multiplier obligation.
	MinMissedRaces int `koanf:"min_missed_races"`

	// NoLossRaces is the races-played-alone count at which teammates get
	// full loss credit (multiplier 0).
	NoLossRaces int `koanf:"no_loss_races"`

	// LockSweepSeconds sets the interval of the periodic multiplier lock
	// sweep. Zero disables the sweep.
	LockSweepSeconds int `koanf:"lock_sweep_seconds"`

	// KindAmounts overrides penalty base amounts per catalog kind name.
	KindAmounts map[string]int `koanf:"kind_amounts"`

	// KindAliases maps alternate (e.g. localized) kind names to canonical
	// catalog names.
	KindAliases map[string]string `koanf:"kind_aliases"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and is
// currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		QueueSize:        1024,
		Backend:          "memory",
		Leaderboards:     []string{"150cc"},
		MinMissedRaces:   3,
		NoLossRaces:      8,
		LockSweepSeconds: 60,
	}
	return c
}
