package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	QuotaEnforcementLenient = "lenient"
	QuotaEnforcementStrict  = "strict"
)

// EntitlementConfig holds the hot-reloadable knobs of the entitlement engine.
type EntitlementConfig struct {
	QuotaEnforcement    string `mapstructure:"quotaEnforcement"`
	PackCacheTTLSeconds int    `mapstructure:"packCacheTTLSeconds"`
	LockTTLSeconds      int    `mapstructure:"lockTTLSeconds"`
}

func DefaultEntitlementConfig() EntitlementConfig {
	return EntitlementConfig{
		QuotaEnforcement:    QuotaEnforcementLenient,
		PackCacheTTLSeconds: 300,
		LockTTLSeconds:      10,
	}
}

func (c EntitlementConfig) Strict() bool {
	return c.QuotaEnforcement == QuotaEnforcementStrict
}

type EntitlementConfigHolder struct {
	current atomic.Value // holds EntitlementConfig
}

// NewEntitlementConfigHolder reads entitlement.yml and keeps it in sync with
// the file on disk. Missing files fall back to defaults.
func NewEntitlementConfigHolder(log *zap.Logger) (*EntitlementConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("entitlement.config")

	v := viper.New()
	v.SetConfigName("entitlement")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/hireledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HIRELEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEntitlementConfig()
	v.SetDefault("entitlement.quotaEnforcement", defaults.QuotaEnforcement)
	v.SetDefault("entitlement.packCacheTTLSeconds", defaults.PackCacheTTLSeconds)
	v.SetDefault("entitlement.lockTTLSeconds", defaults.LockTTLSeconds)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg EntitlementConfig
	if err := v.UnmarshalKey("entitlement", &cfg); err != nil {
		return nil, err
	}
	cfg = normalizeEntitlementConfig(cfg)
	if err := validateEntitlementConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticEntitlementConfig(cfg)
	log.Info("entitlement config loaded",
		zap.String("quota_enforcement", cfg.QuotaEnforcement),
		zap.Bool("from_file", fileLoaded),
	)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated EntitlementConfig
			if err := v.UnmarshalKey("entitlement", &updated); err != nil {
				log.Warn("reload failed", zap.Error(err))
				return
			}
			updated = normalizeEntitlementConfig(updated)
			if err := validateEntitlementConfig(updated); err != nil {
				log.Warn("invalid config ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("entitlement config reloaded",
				zap.String("file", e.Name),
				zap.String("quota_enforcement", updated.QuotaEnforcement),
			)
		})
	}

	return holder, nil
}

// NewStaticEntitlementConfig returns a holder that never reloads.
func NewStaticEntitlementConfig(cfg EntitlementConfig) *EntitlementConfigHolder {
	holder := &EntitlementConfigHolder{}
	holder.current.Store(normalizeEntitlementConfig(cfg))
	return holder
}

func (h *EntitlementConfigHolder) Get() EntitlementConfig {
	if h == nil {
		return DefaultEntitlementConfig()
	}
	return h.current.Load().(EntitlementConfig)
}

// Set swaps the active configuration. Used by tests and admin tooling.
func (h *EntitlementConfigHolder) Set(cfg EntitlementConfig) error {
	cfg = normalizeEntitlementConfig(cfg)
	if err := validateEntitlementConfig(cfg); err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}

func normalizeEntitlementConfig(cfg EntitlementConfig) EntitlementConfig {
	cfg.QuotaEnforcement = strings.ToLower(strings.TrimSpace(cfg.QuotaEnforcement))
	if cfg.QuotaEnforcement == "" {
		cfg.QuotaEnforcement = QuotaEnforcementLenient
	}
	if cfg.LockTTLSeconds <= 0 {
		cfg.LockTTLSeconds = DefaultEntitlementConfig().LockTTLSeconds
	}
	return cfg
}

func validateEntitlementConfig(cfg EntitlementConfig) error {
	switch cfg.QuotaEnforcement {
	case QuotaEnforcementLenient, QuotaEnforcementStrict:
	default:
		return fmt.Errorf("entitlement.quotaEnforcement must be %q or %q, got %q",
			QuotaEnforcementLenient, QuotaEnforcementStrict, cfg.QuotaEnforcement)
	}
	if cfg.PackCacheTTLSeconds < 0 {
		return errors.New("entitlement.packCacheTTLSeconds cannot be negative")
	}
	return nil
}
