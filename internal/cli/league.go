package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/xcleague/internal/config"
	"github.com/okian/xcleague/internal/league"
)

func newLeagueCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "league",
		Short: "Inspect the league definition",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "dump",
			Short: "Print the effective league definition as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				l, err := league.Load(cmd.Context(), cfg.LeagueFile)
				if err != nil {
					return err
				}
				return l.Encode(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the league definition and build its category rules",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				l, err := league.Load(cmd.Context(), cfg.LeagueFile)
				if err != nil {
					return err
				}
				rules, err := l.Rules()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "league %q ok: %d rounds, %d categories, %d races\n",
					l.Name, len(l.Rounds), len(rules.Categories()), len(rules.Races()))
				return nil
			},
		},
	)
	return cmd
}
