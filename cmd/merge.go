package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/spf13/cobra"
)

// mergeCmd handles a single merged pull request payload.
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Update JIRA tickets referenced by a merged pull request",
	Long: `Read a GitHub pull request JSON payload and update the JIRA tickets it references.

Only pull requests merged into a production branch (main, master, production
or prod by default) are handled. Every ticket key found in the title or body
(e.g. PROJ-123) is moved to 'Dev Done' and receives an audit comment.

Example:
  covalynce merge -u user-1 --payload pr.json
  gh api repos/org/repo/pulls/42 | covalynce merge -u user-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := requireUser(cmd)
		if err != nil {
			return err
		}

		payloadPath, err := cmd.Flags().GetString("payload")
		if err != nil {
			return err
		}

		raw, err := readPayload(cmd.InOrStdin(), payloadPath)
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

		result := newEngine(cfg, s).Merges.HandleMergePayload(cmd.Context(), raw, userID)

		logging.Info("merge handled",
			"user_id", userID,
			"status", result.Status,
			"reason", result.Reason,
			"tickets", len(result.TicketsUpdated))

		return writeJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	mergeCmd.Flags().StringP("payload", "p", "-", "Path to the pull request JSON payload, '-' for stdin")
}

// readPayload decodes a JSON object from path, or from stdin when path is "-".
// A webhook envelope carrying a "pull_request" object is unwrapped.
func readPayload(stdin io.Reader, path string) (map[string]any, error) {
	r := stdin
	if path != "-" && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open payload: %w", err)
		}
		defer f.Close()
		r = f
	}

	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	if pr, ok := raw["pull_request"].(map[string]any); ok {
		return pr, nil
	}
	return raw, nil
}
