package cmd

import (
	"context"
	"fmt"

	"github.com/danielolaszy/covalynce/internal/integrations"
	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/pkg/models"
	"github.com/spf13/cobra"
)

// integrationCmd groups the integration management subcommands.
var integrationCmd = &cobra.Command{
	Use:   "integration",
	Short: "Manage a user's GitHub and JIRA integrations",
}

var integrationSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a token and metadata for a provider",
	Long: `Store credentials for one of the user's providers.

Example:
  covalynce integration set -u user-1 --provider github --token gho_xxx
  covalynce integration set -u user-1 --provider jira --token xxx --jira-url https://acme.atlassian.net`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireUser(cmd)
		if err != nil {
			return err
		}

		providerName, err := cmd.Flags().GetString("provider")
		if err != nil {
			return err
		}
		token, err := cmd.Flags().GetString("token")
		if err != nil {
			return err
		}
		refreshToken, err := cmd.Flags().GetString("refresh-token")
		if err != nil {
			return err
		}
		jiraURL, err := cmd.Flags().GetString("jira-url")
		if err != nil {
			return err
		}

		if token == "" && jiraURL == "" {
			return fmt.Errorf("nothing to store: pass --token and/or --jira-url")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		adapter, err := integrations.New(s, models.Provider(providerName))
		if err != nil {
			return err
		}
		provider := adapter.Provider()
		if jiraURL != "" && provider != models.ProviderJira {
			return fmt.Errorf("--jira-url only applies to the jira provider")
		}

		ctx := cmd.Context()
		if token != "" {
			if err := s.UpsertToken(ctx, userID, provider, token, refreshToken); err != nil {
				return err
			}
		}
		if jiraURL != "" {
			if err := s.UpsertMetadata(ctx, userID, provider, map[string]string{integrations.MetadataJiraURL: jiraURL}); err != nil {
				return err
			}
		}

		logging.Info("integration saved",
			"user_id", userID,
			"provider", provider,
			"token", logging.MaskSensitive(token))

		warnIncomplete(ctx, adapter, userID)
		return nil
	},
}

// warnIncomplete logs what the user still has to store before the engine
// can use the integration.
func warnIncomplete(ctx context.Context, adapter integrations.Adapter, userID string) {
	log := logging.With("user_id", userID, "provider", adapter.Provider())

	if _, err := adapter.FetchToken(ctx, userID); err != nil {
		log.Warn("integration has no token yet", "error", err)
	}
	if adapter.Provider() != models.ProviderJira {
		return
	}

	metadata, err := adapter.FetchMetadata(ctx, userID)
	if err != nil {
		log.Warn("failed to read integration metadata", "error", err)
		return
	}
	if metadata[integrations.MetadataJiraURL] == "" {
		log.Warn("jira integration has no instance url yet, pass --jira-url")
	}
}

var integrationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's integrations with masked tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireUser(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		rows, err := s.ListIntegrations(cmd.Context(), userID)
		if err != nil {
			return err
		}

		type view struct {
			Provider  models.Provider   `json:"provider"`
			Token     string            `json:"token"`
			Metadata  map[string]string `json:"metadata"`
			UpdatedAt string            `json:"updated_at"`
		}
		out := make([]view, 0, len(rows))
		for _, row := range rows {
			out = append(out, view{
				Provider:  row.Provider,
				Token:     logging.MaskSensitive(row.AccessToken),
				Metadata:  row.Metadata,
				UpdatedAt: row.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	integrationCmd.AddCommand(integrationSetCmd)
	integrationCmd.AddCommand(integrationListCmd)

	integrationSetCmd.Flags().String("provider", "", "Provider name (github or jira)")
	integrationSetCmd.Flags().String("token", "", "Access token")
	integrationSetCmd.Flags().String("refresh-token", "", "Refresh token, if the provider issued one")
	integrationSetCmd.Flags().String("jira-url", "", "Base URL of the user's JIRA instance")
}
