// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CaptainASIC/FusionLoom/internal/chat"
	"github.com/CaptainASIC/FusionLoom/internal/config"
	"github.com/CaptainASIC/FusionLoom/internal/history"
	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/provider"
	"github.com/CaptainASIC/FusionLoom/internal/storage"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	storage    string
}

// newAdapters builds the provider adapters. Tests replace it.
var newAdapters = func(cfg *config.Config) chat.AdapterSource {
	return provider.NewRegistry(cfg)
}

// app is the wiring every command starts from.
type app struct {
	cfg      *config.Config
	cfgPath  string
	backend  storage.Backend
	store    *history.Store
	adapters chat.AdapterSource
}

// loadConfig reads --config or the default config files. The returned
// path is empty when no file exists.
func (f *globalFlags) loadConfig() (*config.Config, string, error) {
	if f.configPath != "" {
		cfg, err := config.LoadFromPath(f.configPath)
		if err != nil {
			return nil, "", err
		}
		return cfg, f.configPath, nil
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Warnf("config: %v (using defaults)", err)
	}
	for _, fn := range []func() (string, error){config.ConfigPathTOML, config.ConfigPathJSON} {
		if path, perr := fn(); perr == nil {
			if _, serr := os.Stat(path); serr == nil {
				return cfg, path, nil
			}
		}
	}
	return cfg, "", nil
}

// openApp loads configuration and opens the history store.
func openApp(cmd *cobra.Command, f *globalFlags) (*app, error) {
	cfg, path, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	if f.storage != "" {
		cfg.Storage.Backend = f.storage
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	logger.Init(cfg.LogLevel, cmd.ErrOrStderr())

	opts, err := cfg.StorageOptions()
	if err != nil {
		return nil, err
	}
	backend, err := storage.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	logger.Log.Debugf("history backend %s at %q", opts.Kind, opts.Path)

	return &app{
		cfg:      cfg,
		cfgPath:  path,
		backend:  backend,
		store:    history.New(backend),
		adapters: newAdapters(cfg),
	}, nil
}

// Close releases the storage backend.
func (a *app) Close() error {
	return a.backend.Close()
}

// models returns the configured default model per provider.
func (a *app) models() map[model.Provider]string {
	out := make(map[model.Provider]string)
	for _, p := range model.AllProviders() {
		if m := a.cfg.ProviderSettings(p).DefaultModel; m != "" {
			out[p] = m
		}
	}
	return out
}

// providerOrDefault parses name, falling back to the configured default.
func (a *app) providerOrDefault(name string) (model.Provider, error) {
	if name == "" {
		return a.cfg.StartProvider(), nil
	}
	return model.ParseProvider(name)
}
