package cli

import (
	"fmt"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/spf13/cobra"
)

var modeDescriptions = map[mealplan.Mode]string{
	mealplan.ModeDirect:             "one model call per day, no recipe search",
	mealplan.ModeRetrievalAugmented: "recipe search candidates ground every meal",
	mealplan.ModeHybrid:             "a share of meals grounded in candidates, the rest direct",
	mealplan.ModeBulk:               "the whole plan in a single model call",
}

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the generation modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, mode := range mealplan.Modes {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", mode, modeDescriptions[mode])
			}
			return nil
		},
	}
}
