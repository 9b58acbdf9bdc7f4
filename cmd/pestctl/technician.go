package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pestledger/registry/pkg/client"
	"github.com/spf13/cobra"
)

var techRegister client.RegisterTechnicianRequest

var technicianCmd = &cobra.Command{
	Use:     "technician",
	Aliases: []string{"tech", "technicians"},
	Short:   "Register technicians and manage certification",
}

var technicianRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a technician bound to an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		id, err := c.RegisterTechnician(context.Background(), techRegister)
		if err != nil {
			return fmt.Errorf("register technician: %w", err)
		}
		fmt.Printf("✓ Technician registered\n\n  ID: %d\n", id)
		return nil
	},
}

var technicianGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a technician",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		t, err := c.GetTechnician(context.Background(), id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("technician %d not found", id)
		}
		return printTechnician(t)
	},
}

var technicianByAccountCmd = &cobra.Command{
	Use:   "by-account <account>",
	Short: "Show the technician bound to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		t, err := c.GetTechnicianByAccount(context.Background(), args[0])
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("no technician bound to %s", args[0])
		}
		return printTechnician(t)
	},
}

var technicianStatusCmd = &cobra.Command{
	Use:   "status <id> <active|inactive>",
	Short: "Activate or deactivate a technician (admin only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var active bool
		switch strings.ToLower(args[1]) {
		case "active", "true", "on":
			active = true
		case "inactive", "false", "off":
		default:
			return fmt.Errorf("status must be active or inactive, got %q", args[1])
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.UpdateTechnicianStatus(context.Background(), id, active); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		fmt.Printf("✓ Technician %d set %s\n", id, strings.ToLower(args[1]))
		return nil
	},
}

var technicianRenewCmd = &cobra.Command{
	Use:   "renew <id> <new-expiry-height>",
	Short: "Set a new certification expiry height (admin only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		expiry, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid expiry %q", args[1])
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.RenewCertification(context.Background(), id, expiry); err != nil {
			return fmt.Errorf("renew: %w", err)
		}
		fmt.Printf("✓ Technician %d certified until height %d\n", id, expiry)
		return nil
	},
}

var technicianVerifiedCmd = &cobra.Command{
	Use:   "verified <id>",
	Short: "Check whether you are the verified technician at id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ok, err := c.IsVerified(context.Background(), id)
		if err != nil {
			return err
		}
		fmt.Println(ok)
		return nil
	},
}

var technicianStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the last issued technician id",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		last, err := c.LastTechnicianID(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(last)
		return nil
	},
}

func printTechnician(t *client.Technician) error {
	return printFields(t, [][2]string{
		{"ID", strconv.FormatUint(t.ID, 10)},
		{"Name", t.Name},
		{"License", t.LicenseNumber},
		{"Specializations", strings.Join(t.Specializations, ", ")},
		{"Certified at", strconv.FormatUint(t.CertificationDate, 10)},
		{"Expires at", strconv.FormatUint(t.CertificationExpiry, 10)},
		{"Active", strconv.FormatBool(t.Active)},
		{"Account", t.Account},
	})
}

func init() {
	f := technicianRegisterCmd.Flags()
	f.StringVar(&techRegister.Name, "name", "", "technician name")
	f.StringVar(&techRegister.LicenseNumber, "license", "", "license number")
	f.Uint64Var(&techRegister.CertificationExpiry, "expiry", 0, "certification expiry height")
	f.StringSliceVar(&techRegister.Specializations, "specialization", nil, "specialization (repeatable)")
	f.StringVar(&techRegister.Account, "account", "", "account the technician is bound to")
	_ = technicianRegisterCmd.MarkFlagRequired("name")
	_ = technicianRegisterCmd.MarkFlagRequired("account")

	technicianCmd.AddCommand(technicianRegisterCmd)
	technicianCmd.AddCommand(technicianGetCmd)
	technicianCmd.AddCommand(technicianByAccountCmd)
	technicianCmd.AddCommand(technicianStatusCmd)
	technicianCmd.AddCommand(technicianRenewCmd)
	technicianCmd.AddCommand(technicianVerifiedCmd)
	technicianCmd.AddCommand(technicianStatsCmd)
}
