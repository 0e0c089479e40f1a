package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/t77yq/governance-reconciler/internal/model"
	"github.com/t77yq/governance-reconciler/internal/reconcile"
)

var (
	// ErrMissingField is returned when a required configuration field is
	// absent.
	ErrMissingField = errors.New("missing required field")

	// ErrBadExpression is returned for a malformed recurrence expression.
	ErrBadExpression = errors.New("invalid recurrence expression")

	// ErrBadTimezone is returned for an unknown IANA timezone.
	ErrBadTimezone = errors.New("invalid timezone")

	// ErrDuplicateKey is returned when two schedules collide after
	// identity normalization.
	ErrDuplicateKey = errors.New("duplicate schedule key")
)

// Recurrence expressions are the classic 5-field cron form.
var expressionParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// NATSConfig holds connection settings for the engine's NATS endpoint.
type NATSConfig struct {
	URLs           []string      `mapstructure:"urls"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
}

// PrincipalConfig names the fixed system principal and its granted scope.
type PrincipalConfig struct {
	ID    string `mapstructure:"id"`
	Scope string `mapstructure:"scope"`
}

// Config is the full deployment configuration: one immutable value, loaded
// once per reconciliation pass and threaded through every component call.
type Config struct {
	App struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"app"`

	NATS NATSConfig `mapstructure:"nats"`

	Grants struct {
		DBPath string `mapstructure:"db_path"`
	} `mapstructure:"grants"`

	Principal PrincipalConfig `mapstructure:"principal"`

	// CallTimeout bounds every individual control-plane and storage call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`

	Schedules []model.DesiredSchedule `mapstructure:"schedules"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("call_timeout", 30*time.Second)
	v.SetDefault("nats.connect_timeout", 5*time.Second)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.max_reconnects", 5)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks everything the reconciler treats as a fatal configuration
// error, before any port call: required fields, recurrence syntax, timezone
// validity, and post-normalization key uniqueness. Empty timezones default
// to UTC in place.
func (c *Config) Validate() error {
	if c.Principal.ID == "" {
		return fmt.Errorf("%w: principal.id", ErrMissingField)
	}
	if c.Principal.Scope == "" {
		return fmt.Errorf("%w: principal.scope", ErrMissingField)
	}
	if c.Grants.DBPath == "" {
		return fmt.Errorf("%w: grants.db_path", ErrMissingField)
	}
	if len(c.NATS.URLs) == 0 {
		return fmt.Errorf("%w: nats.urls", ErrMissingField)
	}

	seen := make(map[string]string, len(c.Schedules))
	for i := range c.Schedules {
		s := &c.Schedules[i]

		if s.Key == "" {
			return fmt.Errorf("%w: schedules[%d].key", ErrMissingField, i)
		}
		if s.Expression == "" {
			return fmt.Errorf("%w: schedules[%d].expression", ErrMissingField, i)
		}
		if s.Token == "" {
			return fmt.Errorf("%w: schedules[%d].token", ErrMissingField, i)
		}

		if _, err := expressionParser.Parse(s.Expression); err != nil {
			return fmt.Errorf("%w: schedule %q: %v", ErrBadExpression, s.Key, err)
		}

		if s.Timezone == "" {
			s.Timezone = "UTC"
		}
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("%w: schedule %q: %v", ErrBadTimezone, s.Key, err)
		}

		id := reconcile.Identity(s.Key)
		if prior, ok := seen[id]; ok {
			return fmt.Errorf("%w: %q and %q both derive %q", ErrDuplicateKey, prior, s.Key, id)
		}
		seen[id] = s.Key
	}

	return nil
}
