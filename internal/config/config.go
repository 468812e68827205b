package config

// Config holds all engine configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database" validate:"required"`
	Protocol     ProtocolConfig     `mapstructure:"protocol" validate:"required"`
	Subscription SubscriptionConfig `mapstructure:"subscription" validate:"required"`
}

// ServerConfig contains process-level settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the sqlite database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ProtocolConfig contains the reset-protocol tunables.
type ProtocolConfig struct {
	BreathingSeconds int `mapstructure:"breathing_seconds" validate:"required,gt=0,lte=600"`
}

// SubscriptionConfig contains the entitlement tunables. Trial length and
// grace period are product constants surfaced as configuration.
type SubscriptionConfig struct {
	TrialDays         int    `mapstructure:"trial_days" validate:"required,gt=0,lte=90"`
	GraceDays         int    `mapstructure:"grace_days" validate:"gte=0,lte=30"`
	EntitlementKey    string `mapstructure:"entitlement_key" validate:"required"`
	LifetimeProductID string `mapstructure:"lifetime_product_id" validate:"required"`
}
