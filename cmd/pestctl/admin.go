package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Show or transfer the registry administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		admin, err := c.Admin(context.Background())
		if err != nil {
			return err
		}
		if admin == "" {
			fmt.Println("(no admin configured)")
			return nil
		}
		fmt.Println(admin)
		return nil
	},
}

var adminTransferCmd = &cobra.Command{
	Use:   "transfer <principal>",
	Short: "Hand the admin role to another principal (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.TransferAdmin(context.Background(), args[0]); err != nil {
			return fmt.Errorf("transfer admin: %w", err)
		}
		fmt.Printf("✓ Admin transferred to %s\n", args[0])
		return nil
	},
}

// ── ledger ───────────────────────────────────────────────────────────────────

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show the audit ledger size and root hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ov, err := c.Ledger(context.Background())
		if err != nil {
			return err
		}
		return printFields(ov, [][2]string{
			{"Entries", fmt.Sprint(ov.Entries)},
			{"Root", ov.Root},
		})
	},
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Walk the audit ledger and check every hash link",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.VerifyLedger(context.Background())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(res)
		}
		if !res.Valid {
			return fmt.Errorf("ledger invalid: %s", res.Reason)
		}
		fmt.Println("✓ Ledger chain intact")
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminTransferCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd)
}
