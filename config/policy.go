package config

import (
	"math"
	"os"

	"github.com/dulcemap/dulcemap-api/allocation"
	"github.com/dulcemap/dulcemap-api/models"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// AllocationPolicy holds operator overrides for spawn rules and ranking weights.
type AllocationPolicy struct {
	SpawnRules  map[models.SpawnType]allocation.SpawnRule `yaml:"spawn_rules"`
	RankWeights allocation.RankWeights                    `yaml:"rank_weights"`
}

// policyFile mirrors the YAML layout; nil weights keep their defaults.
type policyFile struct {
	SpawnRules  map[models.SpawnType]allocation.SpawnRule `yaml:"spawn_rules"`
	RankWeights struct {
		Proximity  *float64 `yaml:"proximity"`
		Plan       *float64 `yaml:"plan"`
		Reputation *float64 `yaml:"reputation"`
		Activity   *float64 `yaml:"activity"`
	} `yaml:"rank_weights"`
}

const rankWeightsTolerance = 1e-6

// PlanSeed is the plan catalog bootstrap file.
type PlanSeed struct {
	Plans []models.Plan `yaml:"plans"`
}

// LoadAllocationPolicy reads the policy file. An empty path yields the default policy.
// Rank weights are merged field by field onto DefaultRankWeights and must sum to 1.
func LoadAllocationPolicy(path string) (*AllocationPolicy, error) {
	policy := &AllocationPolicy{RankWeights: allocation.DefaultRankWeights()}
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read policy file %s", path)
	}
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "config: parse policy file %s", path)
	}

	for spawnType, rule := range file.SpawnRules {
		if rule.MaxDaily <= 0 || rule.CooldownHours < 0 {
			return nil, eris.Errorf("config: invalid spawn rule for %q", spawnType)
		}
	}
	policy.SpawnRules = file.SpawnRules

	w := &policy.RankWeights
	overrideWeight(&w.Proximity, file.RankWeights.Proximity)
	overrideWeight(&w.Plan, file.RankWeights.Plan)
	overrideWeight(&w.Reputation, file.RankWeights.Reputation)
	overrideWeight(&w.Activity, file.RankWeights.Activity)

	if w.Proximity < 0 || w.Plan < 0 || w.Reputation < 0 || w.Activity < 0 {
		return nil, eris.New("config: rank weights must not be negative")
	}
	if sum := w.Proximity + w.Plan + w.Reputation + w.Activity; math.Abs(sum-1) > rankWeightsTolerance {
		return nil, eris.Errorf("config: rank weights must sum to 1, got %.4f", sum)
	}

	return policy, nil
}

func overrideWeight(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// LoadPlanSeed reads the plan catalog bootstrap file.
func LoadPlanSeed(path string) ([]models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read plan seed %s", path)
	}

	var seed PlanSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, eris.Wrapf(err, "config: parse plan seed %s", path)
	}

	seen := make(map[string]struct{}, len(seed.Plans))
	for _, p := range seed.Plans {
		if p.Code == "" {
			return nil, eris.New("config: plan seed entry without code")
		}
		if _, dup := seen[p.Code]; dup {
			return nil, eris.Errorf("config: duplicate plan code %q", p.Code)
		}
		seen[p.Code] = struct{}{}
	}
	return seed.Plans, nil
}
