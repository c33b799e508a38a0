package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEntitlementConfigDefaultsToLenient(t *testing.T) {
	holder := NewStaticEntitlementConfig(EntitlementConfig{})

	cfg := holder.Get()
	assert.Equal(t, QuotaEnforcementLenient, cfg.QuotaEnforcement)
	assert.False(t, cfg.Strict())
	assert.Equal(t, 10, cfg.LockTTLSeconds)
}

func TestEntitlementConfigSetRejectsUnknownMode(t *testing.T) {
	holder := NewStaticEntitlementConfig(DefaultEntitlementConfig())

	err := holder.Set(EntitlementConfig{QuotaEnforcement: "eventual"})
	require.Error(t, err)
	assert.Equal(t, QuotaEnforcementLenient, holder.Get().QuotaEnforcement)

	require.NoError(t, holder.Set(EntitlementConfig{QuotaEnforcement: " STRICT "}))
	assert.True(t, holder.Get().Strict())
}

func TestNilHolderReturnsDefaults(t *testing.T) {
	var holder *EntitlementConfigHolder
	assert.Equal(t, DefaultEntitlementConfig(), holder.Get())
}
