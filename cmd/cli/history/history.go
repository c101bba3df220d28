package history

import (
	"fmt"
	"github.com/myrjola/casebook/cmd/cli/setup"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/spf13/cobra"
	"text/tabwriter"
)

var Group = &cobra.Group{
	ID:    "history",
	Title: "Case history",
}

var Command = &cobra.Command{
	Use:     "history",
	GroupID: "history",
	Short:   "Manage the case history",
	Long:    `Lists and removes the most recent cases of the player set in CASEBOOK_PLAYER.`,
}

func init() {
	Command.AddCommand(List, Remove)
}

var List = &cobra.Command{
	Use:   "list",
	Short: "List recorded cases, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := setup.Open(cmd.Context())
		if err != nil {
			return err //nolint:wrapcheck // already annotated
		}
		defer func() {
			_ = env.Close()
		}()

		entries, err := env.History.List(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "list history")
		}
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No cases yet.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // padding
		_, _ = fmt.Fprintln(tw, "ID\tRECORDED\tDIFFICULTY\tTITLE")
		for _, entry := range entries {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", entry.ID, entry.RecordedAt.Local().Format("2006-01-02 15:04"),
				entry.Details.Case.Difficulty, entry.Details.Case.Title)
		}
		if err = tw.Flush(); err != nil {
			return errors.Wrap(err, "flush table")
		}
		return nil
	},
}

var Remove = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a recorded case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup.Open(cmd.Context())
		if err != nil {
			return err //nolint:wrapcheck // already annotated
		}
		defer func() {
			_ = env.Close()
		}()

		if err = env.History.Remove(cmd.Context(), args[0]); err != nil {
			return errors.Wrap(err, "remove history entry")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
		return nil
	},
}
