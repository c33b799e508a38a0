package adapters

import (
	"maps"
	"slices"
	"strings"

	"github.com/smallbiznis/hireledger/internal/payment/domain"
)

// Registry resolves the :provider segment of /webhooks/:provider to the
// factory that can verify and parse that provider's deliveries.
type Registry struct {
	byName map[string]domain.AdapterFactory
}

// NewRegistry indexes factories by provider name. Later factories replace
// earlier ones with the same name.
func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	r := &Registry{byName: make(map[string]domain.AdapterFactory, len(factories))}
	for _, f := range factories {
		if f == nil {
			continue
		}
		if name := providerKey(f.Provider()); name != "" {
			r.byName[name] = f
		}
	}
	return r
}

func (r *Registry) ProviderExists(provider string) bool {
	return r.lookup(provider) != nil
}

// Providers lists the registered provider names in order.
func (r *Registry) Providers() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.byName))
}

func (r *Registry) NewAdapter(provider string, cfg domain.AdapterConfig) (domain.PaymentAdapter, error) {
	f := r.lookup(provider)
	if f == nil {
		return nil, domain.ErrProviderNotFound
	}
	cfg.Provider = providerKey(provider)
	return f.NewAdapter(cfg)
}

func (r *Registry) lookup(provider string) domain.AdapterFactory {
	if r == nil {
		return nil
	}
	return r.byName[providerKey(provider)]
}

func providerKey(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
