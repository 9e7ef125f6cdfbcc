package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newThreadsCommand(opts *globalOptions) *cobra.Command {
	var showMessages bool

	cmd := &cobra.Command{
		Use:   "threads [document-id]",
		Short: "List the conversation threads of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.newSession()
			if err != nil {
				return err
			}

			threads, err := sess.History.LoadThreadsForDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(threads) == 0 {
				fmt.Fprintf(out, "No threads for %s.\n", args[0])
				return nil
			}
			for _, t := range threads {
				fmt.Fprintf(out, "%s\t%s\t%d messages\n", t.ID, t.Title, len(t.Messages))
				if showMessages {
					for _, m := range t.Messages {
						fmt.Fprintf(out, "  %s: %s\n", m.Role, m.Text)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showMessages, "messages", "m", false, "print each thread's messages")
	return cmd
}
