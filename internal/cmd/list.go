package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/planflat/internal/config"
	"github.com/harrison/planflat/internal/display"
	"github.com/harrison/planflat/internal/plan"
)

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the plans under plans_dir",
		Long: `List every plan directory under plans_dir with the number of files a
dump would copy (after exclude patterns) and the plan's title (the first level-1 heading of its
README.md, plan.md or first markdown file).`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().String("plans-dir", "", "Directory holding plans (default: docs/plans)")
	cmd.Flags().StringSlice("exclude", nil, "Basename glob to skip when counting (repeatable)")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	var overrides config.FlagOverrides
	if cmd.Flags().Changed("plans-dir") {
		v, _ := cmd.Flags().GetString("plans-dir")
		overrides.PlansDir = &v
	}
	if cmd.Flags().Changed("exclude") {
		v, _ := cmd.Flags().GetStringSlice("exclude")
		overrides.Exclude = &v
	}
	cfg.MergeWithFlags(overrides)

	plans, err := plan.List(cfg.PlansDir, cfg.Exclude)
	if err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}

	display.PlanTable(cmd.OutOrStdout(), plans)

	var unreadable []string
	for _, p := range plans {
		if p.Err != nil {
			unreadable = append(unreadable, fmt.Sprintf("%s: %v", p.Path, p.Err))
		}
	}
	if len(unreadable) > 0 {
		display.WarnUnreadablePlans(unreadable).Display(cmd.ErrOrStderr())
	}
	return nil
}
