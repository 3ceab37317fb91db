package strategy

import (
	"fmt"
	"sort"
	"strings"

	"BoostIQ/internal/model"
)

// Built-in profile names.
const (
	ProfileExplosion    = "explosion"
	ProfilePreExplosion = "pre-explosion"
	ProfileTopGainer    = "top-gainer"
)

// explosionTiers is the recommendation table shared by the momentum profiles.
var explosionTiers = []model.RecommendationTier{
	{MinScore: 80, Action: "STRONG_BUY", Confidence: "VERY_HIGH", TargetMultiplier: 1.25, StopMultiplier: 0.95},
	{MinScore: 60, Action: "MONITOR", Confidence: "MEDIUM", TargetMultiplier: 1.10, StopMultiplier: 0.95},
}

var avoidTier = model.RecommendationTier{Action: "AVOID", Confidence: "LOW", TargetMultiplier: 1.05, StopMultiplier: 0.97}

// DefaultProfiles returns fresh copies of the built-in profiles.
func DefaultProfiles() []model.Profile {
	explosion := model.Profile{
		Name:          ProfileExplosion,
		ShortInterval: "5m",
		LongInterval:  "1h",
		ShortWeight:   0.35, ShortCap: 25,
		LongWeight:    0.15, LongCap: 35,
		VolumeWeight:  0.30, VolumeCap: 10,
		RSIWeight:     0.10, RSIMin: 40, RSIMax: 70,
		NewListingBonus:  20,
		CompressionBonus: 10,
		MinQuoteVolume:   200000,
		MinChangeShort:   4,
		MinChangeLong:    6,
		MinVolumeRatio:   2.0,
		MinScore:         60,
		Tiers:            append([]model.RecommendationTier(nil), explosionTiers...),
		DefaultTier:      avoidTier,
	}

	pre := explosion
	pre.Name = ProfilePreExplosion
	pre.CompressionBonus = 25
	pre.MinChangeShort = 1
	pre.MinChangeLong = 2
	pre.MinVolumeRatio = 1.5
	pre.RSIMin, pre.RSIMax = 35, 65
	pre.MinScore = 50
	pre.Tiers = []model.RecommendationTier{
		{MinScore: 75, Action: "IMMINENT_BREAKOUT", Confidence: "HIGH", TargetMultiplier: 1.20, StopMultiplier: 0.95},
		{MinScore: 50, Action: "WATCH", Confidence: "MEDIUM", TargetMultiplier: 1.10, StopMultiplier: 0.95},
	}

	gainer := model.Profile{
		Name:          ProfileTopGainer,
		ShortInterval: "1h",
		LongInterval:  "1d",
		ShortWeight:   0.25, ShortCap: 15,
		LongWeight:    0.45, LongCap: 50,
		VolumeWeight:  0.20, VolumeCap: 10,
		RSIWeight:     0.10, RSIMin: 45, RSIMax: 80,
		MinQuoteVolume: 50000,
		MinChangeLong:  3,
		MinScore:       40,
		Tiers: []model.RecommendationTier{
			{MinScore: 70, Action: "STRONG_BUY", Confidence: "HIGH", TargetMultiplier: 1.25, StopMultiplier: 0.95},
			{MinScore: 40, Action: "MONITOR", Confidence: "MEDIUM", TargetMultiplier: 1.10, StopMultiplier: 0.95},
		},
		DefaultTier: avoidTier,
	}

	return []model.Profile{explosion, pre, gainer}
}

// Registry resolves profiles by name.
type Registry struct {
	profiles map[string]model.Profile
}

// NewRegistry builds a registry from the built-ins, then applies overrides.
// An override with the name of a built-in replaces it; other names are added.
func NewRegistry(overrides []model.Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]model.Profile)}
	for _, p := range DefaultProfiles() {
		r.profiles[p.Name] = p
	}
	for _, p := range overrides {
		p, err := Normalize(p)
		if err != nil {
			return nil, err
		}
		r.profiles[p.Name] = p
	}
	return r, nil
}

// Get returns the named profile.
func (r *Registry) Get(name string) (model.Profile, bool) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names returns the registered profile names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every profile ordered by name.
func (r *Registry) All() []model.Profile {
	out := make([]model.Profile, 0, len(r.profiles))
	for _, n := range r.Names() {
		out = append(out, r.profiles[n])
	}
	return out
}

// Normalize validates p and sorts its tiers by descending MinScore.
func Normalize(p model.Profile) (model.Profile, error) {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if p.Name == "" {
		return p, fmt.Errorf("profile name is required")
	}
	if p.ShortInterval == "" || p.LongInterval == "" {
		return p, fmt.Errorf("profile %s: short_interval and long_interval are required", p.Name)
	}
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"short_cap", p.ShortCap}, {"long_cap", p.LongCap}, {"volume_cap", p.VolumeCap},
	} {
		if c.value <= 0 {
			return p, fmt.Errorf("profile %s: %s must be positive", p.Name, c.name)
		}
	}
	if p.RSIMin > p.RSIMax {
		return p, fmt.Errorf("profile %s: rsi_min must be <= rsi_max", p.Name)
	}
	tiers := append([]model.RecommendationTier(nil), p.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinScore > tiers[j].MinScore })
	p.Tiers = tiers
	if p.DefaultTier.Action == "" {
		p.DefaultTier = avoidTier
	}
	return p, nil
}
