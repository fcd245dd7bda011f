package optimizer

// Config holds the planning tunables. The weight and floor values are
// calibration constants carried as configuration so plan scoring can be
// tuned without code changes.
type Config struct {
	// DefaultMaxStores caps the number of stops in a Cheapest plan when
	// the request does not specify one.
	DefaultMaxStores int `mapstructure:"default_max_stores"`

	// BalancedMaxStores caps the Balanced plan's store selection. Lower
	// than the Cheapest cap, favoring convenience.
	BalancedMaxStores int `mapstructure:"balanced_max_stores"`

	// DefaultRadiusKm is the store search radius when the request does
	// not specify one.
	DefaultRadiusKm float64 `mapstructure:"default_radius_km"`

	// MaxRadiusKm bounds the requestable search radius.
	MaxRadiusKm float64 `mapstructure:"max_radius_km"`

	// MaxItems bounds the shopping list length.
	MaxItems int `mapstructure:"max_items"`

	// AvailabilityWeight is the per-item score weight in the Fastest
	// strategy; distance acts only as a tiebreaker against it.
	AvailabilityWeight float64 `mapstructure:"availability_weight"`

	// DistanceFloorKm floors the distance divisor in the Balanced value
	// score so very close stores do not blow up the ratio.
	DistanceFloorKm float64 `mapstructure:"distance_floor_km"`

	// BaselineChains are the chains plans are compared against when
	// present in the candidate store set.
	BaselineChains []string `mapstructure:"baseline_chains"`
}

// Defaults returns the reference configuration.
func Defaults() *Config {
	return &Config{
		DefaultMaxStores:   5,
		BalancedMaxStores:  2,
		DefaultRadiusKm:    15,
		MaxRadiusKm:        50,
		MaxItems:           100,
		AvailabilityWeight: 1000,
		DistanceFloorKm:    0.5,
		BaselineChains:     []string{"WALMART", "TARGET", "COSTCO"},
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.DefaultMaxStores < 1 {
		return ErrInvalidConfig{Field: "default_max_stores", Reason: "must be at least 1"}
	}
	if c.BalancedMaxStores < 1 {
		return ErrInvalidConfig{Field: "balanced_max_stores", Reason: "must be at least 1"}
	}
	if c.DefaultRadiusKm <= 0 {
		return ErrInvalidConfig{Field: "default_radius_km", Reason: "must be positive"}
	}
	if c.MaxRadiusKm < c.DefaultRadiusKm {
		return ErrInvalidConfig{Field: "max_radius_km", Reason: "must be >= default_radius_km"}
	}
	if c.MaxItems < 1 {
		return ErrInvalidConfig{Field: "max_items", Reason: "must be at least 1"}
	}
	if c.AvailabilityWeight <= 0 {
		return ErrInvalidConfig{Field: "availability_weight", Reason: "must be positive"}
	}
	if c.DistanceFloorKm <= 0 {
		return ErrInvalidConfig{Field: "distance_floor_km", Reason: "must be positive"}
	}
	return nil
}

// ErrInvalidConfig is returned when the configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}
