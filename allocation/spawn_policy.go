package allocation

import (
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
)

// SpawnRule caps how often one item may be shown to one viewer.
type SpawnRule struct {
	MaxDaily      int     `yaml:"max_daily" json:"max_daily"`
	CooldownHours float64 `yaml:"cooldown_hours" json:"cooldown_hours"`
}

// FallbackSpawnRule applies to unrecognized spawn types (same as weekly).
var FallbackSpawnRule = SpawnRule{MaxDaily: 1, CooldownHours: 24}

// DefaultSpawnRules returns the built-in rule table.
func DefaultSpawnRules() map[models.SpawnType]SpawnRule {
	return map[models.SpawnType]SpawnRule{
		models.SpawnTypeDaily:    {MaxDaily: 1, CooldownHours: 0},
		models.SpawnTypeWeekly:   {MaxDaily: 1, CooldownHours: 24},
		models.SpawnTypeBiweekly: {MaxDaily: 2, CooldownHours: 12},
		models.SpawnTypeBoost:    {MaxDaily: 4, CooldownHours: 2},
	}
}

// SpawnPolicy decides whether an item may be shown again given its exposure record.
type SpawnPolicy struct {
	rules    map[models.SpawnType]SpawnRule
	location *time.Location
}

// NewSpawnPolicy builds a policy from the default table with overrides applied on top.
func NewSpawnPolicy(overrides map[models.SpawnType]SpawnRule, loc *time.Location) *SpawnPolicy {
	rules := DefaultSpawnRules()
	for t, r := range overrides {
		rules[t] = r
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SpawnPolicy{rules: rules, location: loc}
}

// Rule returns the rule for spawnType, falling back to FallbackSpawnRule.
func (p *SpawnPolicy) Rule(spawnType models.SpawnType) SpawnRule {
	if r, ok := p.rules[spawnType]; ok {
		return r
	}
	return FallbackSpawnRule
}

// IsAllowed reports whether an item with the given record may be shown at now.
// Missing history always allows.
func (p *SpawnPolicy) IsAllowed(record *ExposureRecord, spawnType models.SpawnType, now time.Time) bool {
	if record == nil {
		return true
	}
	rule := p.Rule(spawnType)

	hoursSinceLast := now.Sub(record.LastViewedAt).Hours()
	if hoursSinceLast < rule.CooldownHours {
		return false
	}

	viewsToday := record.ViewsOn(utils.DayBucket(now, p.location))
	return viewsToday < rule.MaxDaily
}
