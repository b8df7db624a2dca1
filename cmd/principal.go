package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/ui/theme"
)

var principalCmd = &cobra.Command{
	Use:   "principal",
	Short: "Manage principals",
}

var principalCreateCmd = &cobra.Command{
	Use:   "create <id>",
	Short: "Register a principal with a starting credit balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		balance := a.cfg.Credits.DefaultBalance
		if cmd.Flags().Changed("balance") {
			balance, _ = cmd.Flags().GetInt64("balance")
		}

		ctx := cmd.Context()
		p, err := a.store.Principals().Create(ctx, args[0], balance)
		if err != nil {
			return fmt.Errorf("create principal: %w", err)
		}
		if a.redisBalances != nil {
			if _, err := a.redisBalances.Open(ctx, p.ID, balance); err != nil {
				return fmt.Errorf("open redis balance: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %s credits\n",
			theme.Label.Render(p.ID), theme.Title.Render(fmt.Sprint(balance)))
		return nil
	},
}

func init() {
	principalCreateCmd.Flags().Int64("balance", 0, "Starting balance (default from config, 20)")

	principalCmd.AddCommand(principalCreateCmd)
}
