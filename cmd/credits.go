package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/credits"
	"github.com/abhisek/docquiz/internal/ui/theme"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Inspect and top up credit balances",
}

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the principal's credit balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		bal, err := a.ledger.Balance(cmd.Context(), principal)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d credits\n", theme.Label.Render(principal+":"), bal)
		return nil
	},
}

var creditsAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Add credits to the principal's balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", credits.ErrInvalidAmount, args[0])
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		bal, err := a.ledger.Credit(cmd.Context(), principal, amount)
		if err != nil {
			return fmt.Errorf("add credits: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d credits. New balance: %s\n",
			amount, theme.Title.Render(fmt.Sprint(bal)))
		return nil
	},
}

func init() {
	creditsCmd.AddCommand(creditsBalanceCmd)
	creditsCmd.AddCommand(creditsAddCmd)
}
