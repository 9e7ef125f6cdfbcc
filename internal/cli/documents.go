package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDocumentsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List uploaded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.newSession()
			if err != nil {
				return err
			}

			docs, err := sess.History.LoadDirectory(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "No documents uploaded yet.")
				return nil
			}
			for _, d := range docs {
				fmt.Fprintf(out, "%s\t%s\n", d.DocumentID, d.Name)
			}
			return nil
		},
	}
}
