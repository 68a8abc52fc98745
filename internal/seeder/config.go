package seeder

import (
	"errors"
	"fmt"
	"time"
)

// Config controls how much sample data is generated.
type Config struct {
	Profiles         int           `mapstructure:"profiles" yaml:"profiles"`
	MaxTransactions  int           `mapstructure:"max_transactions" yaml:"max_transactions"`
	MaxEmailEvents   int           `mapstructure:"max_email_events" yaml:"max_email_events"`
	ProspectFraction float64       `mapstructure:"prospect_fraction" yaml:"prospect_fraction"`
	TimeSpread       time.Duration `mapstructure:"time_spread" yaml:"time_spread"`
	BatchSize        int           `mapstructure:"batch_size" yaml:"batch_size"`
	// Seed makes generation reproducible; 0 picks a random seed.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig returns a small data set spread over two years.
func DefaultConfig() Config {
	return Config{
		Profiles:         200,
		MaxTransactions:  6,
		MaxEmailEvents:   8,
		ProspectFraction: 0.3,
		TimeSpread:       2 * 365 * 24 * time.Hour,
		BatchSize:        500,
	}
}

// Validate rejects configurations that cannot generate data.
func (c Config) Validate() error {
	if c.Profiles < 1 {
		return errors.New("profiles must be positive")
	}
	if c.BatchSize < 1 {
		return errors.New("batch_size must be positive")
	}
	if c.MaxTransactions < 0 || c.MaxEmailEvents < 0 {
		return errors.New("event counts must not be negative")
	}
	if c.ProspectFraction < 0 || c.ProspectFraction > 1 {
		return fmt.Errorf("prospect_fraction must be within [0,1], got %v", c.ProspectFraction)
	}
	if c.TimeSpread <= 0 {
		return errors.New("time_spread must be positive")
	}
	return nil
}
