package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pestledger/registry/pkg/client"
	"github.com/spf13/cobra"
)

var facilityDetails client.FacilityDetails

var facilityCmd = &cobra.Command{
	Use:     "facility",
	Aliases: []string{"facilities"},
	Short:   "Register and inspect facilities",
}

var facilityRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a facility owned by the calling principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		id, err := c.RegisterFacility(context.Background(), facilityDetails)
		if err != nil {
			return fmt.Errorf("register facility: %w", err)
		}
		fmt.Printf("✓ Facility registered\n\n  ID: %d\n", id)
		return nil
	},
}

var facilityGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a facility",
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
		f, err := c.GetFacility(context.Background(), id)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("facility %d not found", id)
		}
		return printFacility(f)
	},
}

var facilityUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace the details of a facility you own",
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
		if err := c.UpdateFacility(context.Background(), id, facilityDetails); err != nil {
			return fmt.Errorf("update facility: %w", err)
		}
		fmt.Printf("✓ Facility %d updated\n", id)
		return nil
	},
}

var facilityOwnerCmd = &cobra.Command{
	Use:   "owner <id> <principal>",
	Short: "Check whether principal owns a facility",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		owner, err := c.IsOwner(context.Background(), id, args[1])
		if err != nil {
			return err
		}
		fmt.Println(owner)
		return nil
	},
}

var facilityStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the last issued facility id",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		last, err := c.LastFacilityID(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(last)
		return nil
	},
}

func printFacility(f *client.Facility) error {
	return printFields(f, [][2]string{
		{"ID", strconv.FormatUint(f.ID, 10)},
		{"Name", f.Name},
		{"Address", f.Address},
		{"Square footage", strconv.FormatUint(f.SquareFootage, 10)},
		{"Type", f.FacilityType},
		{"Contact", f.ContactName},
		{"Contact info", f.ContactInfo},
		{"Registered at", strconv.FormatUint(f.RegistrationDate, 10)},
		{"Owner", f.Owner},
	})
}

func addFacilityFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&facilityDetails.Name, "name", "", "facility name")
	cmd.Flags().StringVar(&facilityDetails.Address, "address", "", "street address")
	cmd.Flags().Uint64Var(&facilityDetails.SquareFootage, "sqft", 0, "square footage")
	cmd.Flags().StringVar(&facilityDetails.FacilityType, "type", "", "facility type (e.g. restaurant, warehouse)")
	cmd.Flags().StringVar(&facilityDetails.ContactName, "contact", "", "contact name")
	cmd.Flags().StringVar(&facilityDetails.ContactInfo, "contact-info", "", "contact phone or email")
	_ = cmd.MarkFlagRequired("name")
}

func init() {
	addFacilityFlags(facilityRegisterCmd)
	addFacilityFlags(facilityUpdateCmd)

	facilityCmd.AddCommand(facilityRegisterCmd)
	facilityCmd.AddCommand(facilityGetCmd)
	facilityCmd.AddCommand(facilityUpdateCmd)
	facilityCmd.AddCommand(facilityOwnerCmd)
	facilityCmd.AddCommand(facilityStatsCmd)
}
