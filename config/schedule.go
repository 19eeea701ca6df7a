package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Schedule describes how often each market family is settled and which
// fixtures are tracked regardless of pending wagers.
type Schedule struct {
	Families map[string]FamilySchedule `mapstructure:"families"`
}

// FamilySchedule is the schedule for one market family
type FamilySchedule struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Fixtures []int64       `mapstructure:"fixtures"`
}

// LoadSchedule reads the schedule file at path. An empty path yields the defaults.
func LoadSchedule(path string) (*Schedule, error) {
	v := viper.New()
	setScheduleDefaults(v)

	v.SetEnvPrefix("BETLEDGER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read schedule file: %w", err)
		}
	}

	var schedule Schedule
	if err := v.Unmarshal(&schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}

	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func setScheduleDefaults(v *viper.Viper) {
	v.SetDefault("families.batting.enabled", true)
	v.SetDefault("families.batting.interval", "1m")
	v.SetDefault("families.bowling.enabled", true)
	v.SetDefault("families.bowling.interval", "5m")
	v.SetDefault("families.match_result.enabled", true)
	v.SetDefault("families.match_result.interval", "5m")
}

// Validate checks that every enabled family has a usable interval
func (s *Schedule) Validate() error {
	if len(s.Families) == 0 {
		return fmt.Errorf("schedule must define at least one family")
	}
	for name, family := range s.Families {
		if !family.Enabled {
			continue
		}
		if family.Interval < 10*time.Second {
			return fmt.Errorf("families.%s.interval must be at least 10s", name)
		}
	}
	return nil
}
