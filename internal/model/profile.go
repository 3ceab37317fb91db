package model

// RecommendationTier maps a minimum score to an action plan.
type RecommendationTier struct {
	MinScore         float64 `yaml:"min_score" json:"minScore"`
	Action           string  `yaml:"action" json:"action"`
	Confidence       string  `yaml:"confidence" json:"confidence"`
	TargetMultiplier float64 `yaml:"target_multiplier" json:"targetMultiplier"`
	StopMultiplier   float64 `yaml:"stop_multiplier" json:"stopMultiplier"`
}

// Profile is a named set of weights, caps, bonuses and gate thresholds.
// The same scoring and filtering code runs for every profile.
type Profile struct {
	Name string `yaml:"name" json:"name"`

	ShortInterval string `yaml:"short_interval" json:"shortInterval"`
	LongInterval  string `yaml:"long_interval" json:"longInterval"`

	ShortWeight  float64 `yaml:"short_weight" json:"shortWeight"`
	ShortCap     float64 `yaml:"short_cap" json:"shortCap"`
	LongWeight   float64 `yaml:"long_weight" json:"longWeight"`
	LongCap      float64 `yaml:"long_cap" json:"longCap"`
	VolumeWeight float64 `yaml:"volume_weight" json:"volumeWeight"`
	VolumeCap    float64 `yaml:"volume_cap" json:"volumeCap"`
	RSIWeight    float64 `yaml:"rsi_weight" json:"rsiWeight"`
	RSIMin       float64 `yaml:"rsi_min" json:"rsiMin"`
	RSIMax       float64 `yaml:"rsi_max" json:"rsiMax"`

	NewListingBonus  float64 `yaml:"new_listing_bonus" json:"newListingBonus"`
	CompressionBonus float64 `yaml:"compression_bonus" json:"compressionBonus"`

	MinQuoteVolume float64 `yaml:"min_quote_volume" json:"minQuoteVolume"`
	MinChangeShort float64 `yaml:"min_change_short" json:"minChangeShort"`
	MinChangeLong  float64 `yaml:"min_change_long" json:"minChangeLong"`
	MinVolumeRatio float64 `yaml:"min_volume_ratio" json:"minVolumeRatio"`
	MinScore       float64 `yaml:"min_score" json:"minScore"`

	Tiers       []RecommendationTier `yaml:"tiers" json:"tiers"`
	DefaultTier RecommendationTier   `yaml:"default_tier" json:"defaultTier"`
}
