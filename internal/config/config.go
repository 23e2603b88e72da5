// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration parameters for the application.
type Config struct {
	GitHub        GitHubConfig
	Store         StoreConfig
	Remote        RemoteConfig
	Orchestration OrchestrationConfig
	Webhook       WebhookConfig
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Domain string
}

// StoreConfig locates the integration database.
type StoreConfig struct {
	Path string
}

// RemoteConfig bounds every call to GitHub or JIRA.
type RemoteConfig struct {
	Timeout time.Duration
}

// OrchestrationConfig holds the policies used when reacting to merges.
type OrchestrationConfig struct {
	// ProductionBranches are the base branches whose merges trigger ticket updates
	ProductionBranches []string

	// EventWindow is how many recent activity events a reconciliation run scans
	EventWindow int

	// StatusAliases maps a semantic status onto the workflow name searched for
	StatusAliases map[string]string
}

// WebhookConfig holds the HTTP trigger surface settings.
type WebhookConfig struct {
	Addr   string
	Secret string
}

// DefaultStatusAliases is used when no aliases are configured.
var DefaultStatusAliases = map[string]string{
	"Dev Done":     "Done",
	"Ready for QA": "In Review",
	"Completed":    "Done",
}

// DefaultProductionBranches is used when no branches are configured.
var DefaultProductionBranches = []string{"main", "master", "production", "prod"}

// LoadConfig initializes and loads configuration from environment variables
// and, when configFile is not empty, from that file.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("github.domain", "github.com")
	v.SetDefault("store.path", "covalynce.db")
	v.SetDefault("remote.timeout", "10s")
	v.SetDefault("orchestration.production_branches", DefaultProductionBranches)
	v.SetDefault("orchestration.event_window", 50)
	v.SetDefault("webhook.addr", ":8080")

	// Map specific environment variables
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("store.path", "COVALYNCE_DB_PATH")
	v.BindEnv("remote.timeout", "REMOTE_TIMEOUT")
	v.BindEnv("orchestration.production_branches", "PRODUCTION_BRANCHES")
	v.BindEnv("orchestration.event_window", "EVENT_WINDOW")
	v.BindEnv("webhook.addr", "WEBHOOK_ADDR")
	v.BindEnv("webhook.secret", "GITHUB_WEBHOOK_SECRET")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	// viper lowercases map keys, so defaults are stored the same way
	// and a configured alias replaces the default it names
	aliases := make(map[string]string, len(DefaultStatusAliases))
	for k, val := range DefaultStatusAliases {
		aliases[strings.ToLower(k)] = val
	}
	for k, val := range v.GetStringMapString("orchestration.status_aliases") {
		aliases[k] = val
	}

	config := &Config{
		GitHub: GitHubConfig{
			Domain: v.GetString("github.domain"),
		},
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
		Remote: RemoteConfig{
			Timeout: v.GetDuration("remote.timeout"),
		},
		Orchestration: OrchestrationConfig{
			ProductionBranches: splitList(v.GetStringSlice("orchestration.production_branches")),
			EventWindow:        v.GetInt("orchestration.event_window"),
			StatusAliases:      aliases,
		},
		Webhook: WebhookConfig{
			Addr:   v.GetString("webhook.addr"),
			Secret: v.GetString("webhook.secret"),
		},
	}

	if config.GitHub.Domain == "" {
		config.GitHub.Domain = "github.com"
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// splitList flattens values that arrived as a single comma separated
// environment variable.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// validateConfig ensures that all required configuration values are usable.
func validateConfig(config *Config) error {
	var problems []string

	if config.Store.Path == "" {
		problems = append(problems, "COVALYNCE_DB_PATH is empty")
	}
	if config.Remote.Timeout <= 0 {
		problems = append(problems, "REMOTE_TIMEOUT must be a positive duration")
	}
	if config.Remote.Timeout > time.Minute {
		problems = append(problems, "REMOTE_TIMEOUT must not exceed 1m")
	}
	if len(config.Orchestration.ProductionBranches) == 0 {
		problems = append(problems, "PRODUCTION_BRANCHES is empty")
	}
	if config.Orchestration.EventWindow <= 0 {
		problems = append(problems, "EVENT_WINDOW must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %v", problems)
	}

	return nil
}

// ValidateWebhookConfig validates the settings needed to serve webhooks.
func ValidateWebhookConfig(config *Config) error {
	var missingVars []string

	if config.Webhook.Addr == "" {
		missingVars = append(missingVars, "WEBHOOK_ADDR")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}
