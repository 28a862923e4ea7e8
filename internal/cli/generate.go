package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/inbound"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type generateOptions struct {
	query        string
	userID       string
	days         int
	meals        []string
	restrictions []string
	preferences  []string
	exclusions   []string
	prepMax      int
	mode         string
	output       string
}

func newGenerateCmd(connect connectFunc) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a meal plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.output); err != nil {
				return err
			}
			constraints, err := opts.constraints()
			if err != nil {
				return err
			}

			service, stop, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			var plan *mealplan.MealPlan
			if strings.TrimSpace(opts.query) != "" {
				plan, err = service.GenerateFromQuery(cmd.Context(), inbound.QueryRequest{
					Query:  opts.query,
					UserID: opts.userID,
					Mode:   opts.mode,
				})
				if err != nil {
					return err
				}
			} else {
				plan = service.Generate(cmd.Context(), constraints)
			}

			return render(cmd.OutOrStdout(), opts.output, plan)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.query, "query", "q", "", "natural-language request; structured flags are ignored when set")
	f.StringVar(&opts.userID, "user", "", "user id recorded in the plan history")
	f.IntVar(&opts.days, "days", 3, "number of days (1-7)")
	f.StringSliceVar(&opts.meals, "meal", nil, "meal type to include, repeatable (breakfast, lunch, dinner, snack)")
	f.StringSliceVar(&opts.restrictions, "restriction", nil, "dietary restriction, repeatable")
	f.StringSliceVar(&opts.preferences, "preference", nil, "preference, repeatable")
	f.StringSliceVar(&opts.exclusions, "exclude", nil, "ingredient to avoid, repeatable")
	f.IntVar(&opts.prepMax, "prep-max", 0, "maximum preparation time in minutes")
	f.StringVar(&opts.mode, "mode", "", "generation mode (direct, retrieval_augmented, hybrid, bulk)")
	f.StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")

	return cmd
}

func (o generateOptions) constraints() (mealplan.GenerationConstraints, error) {
	c := mealplan.GenerationConstraints{
		DurationDays:        o.days,
		DietaryRestrictions: o.restrictions,
		Preferences:         o.preferences,
		Exclusions:          o.exclusions,
	}
	for _, m := range o.meals {
		mt, err := mealplan.ParseMealType(m)
		if err != nil {
			return c, err
		}
		c.MealTypes = append(c.MealTypes, mt)
	}
	if o.mode != "" {
		mode, err := mealplan.ParseMode(o.mode)
		if err != nil {
			return c, err
		}
		c.Mode = mode
	}
	if o.prepMax > 0 {
		prep := o.prepMax
		c.PrepTimeMax = &prep
	}
	return c, nil
}

func validateOutput(format string) error {
	switch format {
	case "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q, use json or yaml", format)
	}
}

// render writes v as indented JSON or as YAML keyed by the JSON field names
func render(w io.Writer, format string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if format == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}
