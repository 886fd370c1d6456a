package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		if c.db == nil {
			return fmt.Errorf("migrate requires DATABASE_URL")
		}
		if err := c.migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo catalog and ensure the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		rep, err := c.initialize(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products, %d coupons (admin created: %t)\n",
			rep.Products, rep.Coupons, rep.AdminCreated)
		return nil
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Publish scheduled customer notifications",
}

func init() {
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "birthdays",
		Short: "Publish today's birthday event",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			n, err := c.notifier().Birthdays(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d birthday(s) notified\n", n)
			return nil
		},
	})
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "abandoned-carts",
		Short: "Publish an event for every abandoned cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			n, err := c.notifier().AbandonedCarts(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d abandoned cart(s) notified\n", n)
			return nil
		},
	})
}
