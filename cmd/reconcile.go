package cmd

import (
	"github.com/spf13/cobra"
)

// reconcileCmd runs the story completion check for one user.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Complete JIRA stories whose pull requests are all merged",
	Long: `Scan the user's recent GitHub activity for merged pull requests, group them by
the JIRA tickets they reference and move each ticket whose story is complete
to 'Dev Complete'. A completion fires at most once per ticket per run.

The resulting ledger is printed as JSON.`,
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

		entries := newEngine(cfg, s).Stories.Reconcile(cmd.Context(), userID)
		return writeJSON(cmd.OutOrStdout(), entries)
	},
}
