package cli

import (
	"github.com/spf13/cobra"
)

func newHistoryCmd(connect connectFunc) *cobra.Command {
	var (
		userID string
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a user's previously generated plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			service, stop, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			records, err := service.History(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, records)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of plans")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
