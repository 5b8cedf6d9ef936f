// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Family enumerates the behavior families a penalty kind belongs to.
// The family decides how approval applies penalties and whether the
// reconciliation engine cares about the request at all.
type Family int

const (
	// FamilySimple is a one-shot penalty at the catalog amount.
	FamilySimple Family = iota
	// FamilyRepick escalates: one penalty per repicked race, first without strike.
	FamilyRepick
	// FamilyDrop carries a races-played-alone count and a multiplier obligation.
	FamilyDrop
)

func (f Family) String() string {
	switch f {
	case FamilyRepick:
		return "repick"
	case FamilyDrop:
		return "drop"
	default:
		return "simple"
	}
}

// PenaltyRequest mirrors a pending report record held by the external
// request store. Count is the races-played-alone figure for Drop-family
// kinds and the total repick count for Repick; zero otherwise.
type PenaltyRequest struct {
	ID            int64
	KindName      string
	LeaderboardID string
	TableID       int64
	Count         int
	ReporterID    int64
	ReporterName  string
	PlayerID      int64
	PlayerName    string
	CreatedAt     time.Time
}

// Player is the read view of a registered player.
type Player struct {
	ID        int64
	Name      string
	DiscordID string
}

// TableScore is one player's row inside a table team.
type TableScore struct {
	Player     Player
	Score      int
	Multiplier float64
}

// Team groups the scores of players who raced together.
type Team struct {
	Rank   int
	Scores []TableScore
}

// Table is the external, read-only view of a submitted match result.
// VerifiedOn is non-nil once the result has been finalized upstream.
type Table struct {
	ID         int64
	Tier       string
	AuthorID   string // discord id of the table author
	Teams      []Team
	CreatedOn  time.Time
	VerifiedOn *time.Time
	DeletedOn  *time.Time
}

// Team returns the team containing the named player, or nil.
// Matching is case-insensitive, as player names come from chat input.
func (t *Table) Team(playerName string) *Team {
	name := strings.ToLower(strings.TrimSpace(playerName))
	for i := range t.Teams {
		for j := range t.Teams[i].Scores {
			if strings.ToLower(t.Teams[i].Scores[j].Player.Name) == name {
				return &t.Teams[i]
			}
		}
	}
	return nil
}

// Score returns the named player's score row, or nil.
func (t *Table) Score(playerName string) *TableScore {
	name := strings.ToLower(strings.TrimSpace(playerName))
	for i := range t.Teams {
		for j := range t.Teams[i].Scores {
			if strings.ToLower(t.Teams[i].Scores[j].Player.Name) == name {
				return &t.Teams[i].Scores[j]
			}
		}
	}
	return nil
}

// ScoreByDiscord returns the score row of the participant with the given
// external identity, or nil if they did not play in this table.
func (t *Table) ScoreByDiscord(discordID string) *TableScore {
	if discordID == "" {
		return nil
	}
	for i := range t.Teams {
		for j := range t.Teams[i].Scores {
			if t.Teams[i].Scores[j].Player.DiscordID == discordID {
				return &t.Teams[i].Scores[j]
			}
		}
	}
	return nil
}

// SameTeam reports whether both players appear on the same team of this
// table. Returns false when either player is absent.
func (t *Table) SameTeam(playerA, playerB string) bool {
	team := t.Team(playerA)
	if team == nil {
		return false
	}
	name := strings.ToLower(strings.TrimSpace(playerB))
	for i := range team.Scores {
		if strings.ToLower(team.Scores[i].Player.Name) == name {
			return true
		}
	}
	return false
}

// Verified reports whether the table result has been finalized upstream.
func (t *Table) Verified() bool {
	return t.VerifiedOn != nil
}
