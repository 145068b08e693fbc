/*
 * This file is part of Matilda Voice (https://github.com/matildalabs/matilda-voice).
 * Copyright (C) 2025 Matilda Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package tts

import (
	"sort"
	"sync"

	"github.com/matildalabs/matilda-voice/internal/logging"
	"go.uber.org/zap"
)

// Registry maps canonical provider keys to factories and memoizes the
// constructed instances. Backends are built on first use so a provider with
// missing credentials or absent local binaries never prevents the others
// from working.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]Provider
}

// NewRegistry creates a registry from a factory table.
func NewRegistry(factories map[string]Factory) *Registry {
	return &Registry{
		factories: factories,
		instances: make(map[string]Provider),
	}
}

// Register adds or replaces a factory. Replacing drops any cached instance.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	delete(r.instances, name)
}

// Get returns the provider instance for name, constructing and caching it on
// first use. Concurrent first-use is serialized by the registry lock, so at
// most one instance per key exists for the process lifetime. Failed
// constructions are not cached.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if instance, ok := r.instances[name]; ok {
		return instance, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, ConfigurationErrorf("unknown provider %q", name)
	}

	instance, err := factory()
	if err != nil {
		return nil, Wrap(err, name)
	}

	r.instances[name] = instance
	logging.LogProviderEvent(name, "constructed")
	return instance, nil
}

// Has reports whether a provider key is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[name]
	return ok
}

// Providers returns the registered provider keys, sorted.
func (r *Registry) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info returns the descriptive snapshot for a provider, or nil when the
// provider cannot be constructed.
func (r *Registry) Info(name string) *ProviderInfo {
	provider, err := r.Get(name)
	if err != nil {
		logging.LogWarn("Provider unavailable for info", zap.String("provider", name), zap.Error(err))
		return nil
	}
	return provider.Info()
}
