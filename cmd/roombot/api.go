package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/user/roombot/internal/config"
	"github.com/user/roombot/internal/provision"
)

// apiClient builds a provisioning client from validated config.
func apiClient(cfg *config.Config) (*provision.Client, error) {
	if err := cfg.ValidateAPI(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	policy := provision.NewRetryPolicy(cfg.API.MaxRetries, time.Duration(cfg.API.RetryDelayMS)*time.Millisecond)
	return provision.New(cfg.API.URL, cfg.API.AppID, cfg.API.AppToken,
		provision.WithRetryPolicy(policy),
		provision.WithLogger(slog.Default()),
	), nil
}
