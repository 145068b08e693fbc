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
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
)

type stubProvider struct {
	name      string
	synthesis func(ctx context.Context, text, outputPath string, opts *Options) error
}

func (p *stubProvider) Synthesize(ctx context.Context, text, outputPath string, opts *Options) error {
	if p.synthesis != nil {
		return p.synthesis(ctx, text, outputPath, opts)
	}
	return nil
}

func (p *stubProvider) Info() *ProviderInfo {
	return &ProviderInfo{Name: p.name, SampleVoices: []string{"stub-voice"}}
}

func TestRegistryGetMemoizes(t *testing.T) {
	var constructions int32
	registry := NewRegistry(map[string]Factory{
		"stub": func() (Provider, error) {
			atomic.AddInt32(&constructions, 1)
			return &stubProvider{name: "stub"}, nil
		},
	})

	first, err := registry.Get("stub")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := registry.Get("stub")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Error("second Get returned a different instance")
	}
	if n := atomic.LoadInt32(&constructions); n != 1 {
		t.Errorf("factory ran %d times, want 1", n)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistry(map[string]Factory{})
	_, err := registry.Get("missing")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	var typed *Error
	if !errors.As(err, &typed) || typed.Kind != KindConfiguration {
		t.Errorf("unknown provider error = %v, want ConfigurationError", err)
	}
}

func TestRegistryFailedConstructionNotCached(t *testing.T) {
	var attempts int32
	registry := NewRegistry(map[string]Factory{
		"flaky": func() (Provider, error) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return nil, errors.New("binary not found")
			}
			return &stubProvider{name: "flaky"}, nil
		},
	})

	if _, err := registry.Get("flaky"); err == nil {
		t.Fatal("first Get should fail")
	}
	provider, err := registry.Get("flaky")
	if err != nil {
		t.Fatalf("second Get should retry construction: %v", err)
	}
	if provider == nil {
		t.Fatal("nil provider after successful retry")
	}
	if n := atomic.LoadInt32(&attempts); n != 2 {
		t.Errorf("factory ran %d times, want 2", n)
	}
}

func TestRegistryConcurrentFirstUse(t *testing.T) {
	var constructions int32
	registry := NewRegistry(map[string]Factory{
		"stub": func() (Provider, error) {
			atomic.AddInt32(&constructions, 1)
			return &stubProvider{name: "stub"}, nil
		},
	})

	var wg sync.WaitGroup
	instances := make([]Provider, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			provider, err := registry.Get("stub")
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			instances[slot] = provider
		}(i)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&constructions); n != 1 {
		t.Errorf("factory ran %d times under contention, want 1", n)
	}
	for i := 1; i < len(instances); i++ {
		if instances[i] != instances[0] {
			t.Fatalf("goroutine %d saw a different instance", i)
		}
	}
}

func TestRegistryRegisterDropsCache(t *testing.T) {
	registry := NewRegistry(map[string]Factory{
		"stub": func() (Provider, error) { return &stubProvider{name: "old"}, nil },
	})
	old, _ := registry.Get("stub")

	registry.Register("stub", func() (Provider, error) { return &stubProvider{name: "new"}, nil })
	replaced, err := registry.Get("stub")
	if err != nil {
		t.Fatalf("Get after Register: %v", err)
	}
	if replaced == old {
		t.Error("Register did not drop the cached instance")
	}
	if replaced.Info().Name != "new" {
		t.Errorf("got %q, want the replacement provider", replaced.Info().Name)
	}
}

func TestRegistryProvidersSorted(t *testing.T) {
	registry := NewRegistry(map[string]Factory{
		"zeta":  func() (Provider, error) { return &stubProvider{}, nil },
		"alpha": func() (Provider, error) { return &stubProvider{}, nil },
		"mid":   func() (Provider, error) { return &stubProvider{}, nil },
	})
	got := registry.Providers()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Providers() = %v, want %v", got, want)
	}
}

func TestRegistryInfoDegrades(t *testing.T) {
	registry := NewRegistry(map[string]Factory{
		"broken": func() (Provider, error) { return nil, errors.New("no engine") },
	})
	if info := registry.Info("broken"); info != nil {
		t.Errorf("Info for broken provider = %+v, want nil", info)
	}
	if info := registry.Info("missing"); info != nil {
		t.Errorf("Info for unknown provider = %+v, want nil", info)
	}
}
