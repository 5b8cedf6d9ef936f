// Package catalog holds the static penalty kind catalog and name
// classification. The catalog is immutable after construction; all
// lookups fall back from exact match to case-insensitive match to an
// alias reverse lookup fed by external translations.
package catalog

import (
	"sort"
	"strings"

	"github.com/mogibot/penalty/internal/domain/model"
)

// Kind is one catalog entry: the canonical name plus the behavior knobs
// approval and reconciliation need.
type Kind struct {
	Name       string
	BaseAmount int
	IsStrike   bool
	Family     model.Family

	// MinCount rejects reports below an incident threshold, e.g. the
	// "3+ dcs" kind requires at least three absent-teammate races.
	MinCount int

	// AuthorOnly restricts non-staff reports to the table author,
	// either as reporter or as reported player.
	AuthorOnly bool
}

// Catalog resolves raw kind names to canonical entries.
type Catalog struct {
	kinds   map[string]Kind   // canonical name -> entry
	lower   map[string]string // lowercased name -> canonical name
	aliases map[string]string // lowercased alias -> canonical name
}

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithKinds replaces the default kind set.
func WithKinds(kinds []Kind) Option {
	return func(c *Catalog) {
		c.kinds = make(map[string]Kind, len(kinds))
		for _, k := range kinds {
			c.kinds[k.Name] = k
		}
	}
}

// WithAliases registers alias names (e.g. localized command strings)
// resolving to canonical kind names.
func WithAliases(aliases map[string]string) Option {
	return func(c *Catalog) {
		for alias, canonical := range aliases {
			c.aliases[strings.ToLower(strings.TrimSpace(alias))] = canonical
		}
	}
}

// WithBaseAmounts overrides base amounts per canonical kind name.
// Unknown names are ignored.
func WithBaseAmounts(amounts map[string]int) Option {
	return func(c *Catalog) {
		for name, amount := range amounts {
			if k, ok := c.kinds[name]; ok && amount > 0 {
				k.BaseAmount = amount
				c.kinds[name] = k
			}
		}
	}
}

// New builds a catalog. Without options it carries the default kind set.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		kinds:   make(map[string]Kind, len(defaultKinds)),
		aliases: make(map[string]string),
	}
	for _, k := range defaultKinds {
		c.kinds[k.Name] = k
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	c.lower = make(map[string]string, len(c.kinds))
	for name := range c.kinds {
		c.lower[strings.ToLower(name)] = name
	}
	return c
}

// Classify resolves a raw kind name to its canonical catalog entry.
// Fallback chain: exact match, case-insensitive match, alias lookup.
func (c *Catalog) Classify(rawName string) (Kind, error) {
	name := strings.TrimSpace(rawName)
	if k, ok := c.kinds[name]; ok {
		return k, nil
	}
	folded := strings.ToLower(name)
	if canonical, ok := c.lower[folded]; ok {
		return c.kinds[canonical], nil
	}
	if canonical, ok := c.aliases[folded]; ok {
		if k, ok := c.kinds[canonical]; ok {
			return k, nil
		}
	}
	return Kind{}, ErrUnknownKind
}

// Kinds returns all catalog entries sorted by name.
func (c *Catalog) Kinds() []Kind {
	out := make([]Kind, 0, len(c.kinds))
	for _, k := range c.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// defaultKinds is the stock catalog. Base amounts are policy values and
// can be overridden through configuration.
var defaultKinds = []Kind{
	{Name: "Late", BaseAmount: 50, IsStrike: true, Family: model.FamilySimple},
	{Name: "Drop mid mogi", BaseAmount: 50, IsStrike: true, Family: model.FamilyDrop},
	{Name: "3+ dcs", BaseAmount: 50, IsStrike: true, Family: model.FamilyDrop, MinCount: 3},
	{Name: "Drop before start", BaseAmount: 100, IsStrike: true, Family: model.FamilyDrop},
	{Name: "Tag penalty", BaseAmount: 50, IsStrike: true, Family: model.FamilySimple},
	{Name: "FFA name violation", BaseAmount: 50, IsStrike: true, Family: model.FamilySimple, AuthorOnly: true},
	{Name: "Repick", BaseAmount: 50, IsStrike: true, Family: model.FamilyRepick},
	{Name: "No video proof", BaseAmount: 50, IsStrike: true, Family: model.FamilySimple},
	{Name: "Host issues", BaseAmount: 50, IsStrike: true, Family: model.FamilySimple},
	{Name: "No host", BaseAmount: 50, IsStrike: true, Family: model.FamilySimple},
}
