// Package cmd provides the command-line interface for covalynce.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/danielolaszy/covalynce/internal/config"
	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/internal/orchestration"
	"github.com/danielolaszy/covalynce/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "covalynce",
	Short: "Covalynce links GitHub merges to JIRA ticket workflows",
	Long: `Covalynce reacts to pull requests merged into production branches by moving
the JIRA tickets they reference through their workflow, and completes stories
once all of their work has been merged.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a configuration file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringP("user", "u", "", "User whose integrations are used")

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(integrationCmd)
}

// loadConfig reads the configuration selected by the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openStore opens the integration database named in cfg.
func openStore(cfg *config.Config) (*store.Store, error) {
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	logging.Debug("opened integration store", "path", cfg.Store.Path)
	return s, nil
}

// newEngine wires the orchestration engine for cfg on top of s.
func newEngine(cfg *config.Config, s *store.Store) *orchestration.Engine {
	return orchestration.NewEngine(orchestration.Options{
		ProductionBranches: cfg.Orchestration.ProductionBranches,
		StatusAliases:      cfg.Orchestration.StatusAliases,
		EventWindow:        cfg.Orchestration.EventWindow,
		Timeout:            cfg.Remote.Timeout,
		GitHubDomain:       cfg.GitHub.Domain,
	}, s)
}

// requireUser returns the --user flag or an error when it is empty.
func requireUser(cmd *cobra.Command) (string, error) {
	userID, err := cmd.Flags().GetString("user")
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", fmt.Errorf("user flag is required")
	}
	return userID, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
