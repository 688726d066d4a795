package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go-rental-ws/internal/bootstrap"
	"go-rental-ws/internal/config"
	"go-rental-ws/internal/service"
	"go-rental-ws/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:           "rentalctl",
		Short:         "Admin tasks for the rental API",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "deadline for the whole command")

	root.AddCommand(
		createAdminCmd(),
		resetPasswordCmd(),
		syncCmd(&timeout),
		forceStatusCmd(&timeout),
	)
	return root
}

// withContainer loads config, connects and runs fn against the wired services.
func withContainer(fn func(c *bootstrap.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.JSON)

	c, err := bootstrap.New(cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Migrate(); err != nil {
		return err
	}
	return fn(c)
}

func createAdminCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-admin <email> <password>",
		Short: "Create an administrator account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(c *bootstrap.Container) error {
				user, err := c.AuthSvc.CreateAdmin(args[0], name, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "full name")
	return cmd
}

func resetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email> <new-password>",
		Short: "Set a new password and end the user's sessions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(c *bootstrap.Container) error {
				if err := c.AuthSvc.SetPassword(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password for %s has been reset\n", args[0])
				return nil
			})
		},
	}
}

func syncCmd(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <order_code>",
		Short: "Poll the gateway and reconcile one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(c *bootstrap.Container) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
				defer cancel()

				res, err := c.Notifications.SyncOrder(ctx, service.SystemActor, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: gateway=%s payment=%s order=%s changed=%t\n",
					res.OrderCode, res.GatewayStatus, res.PaymentStatus, res.OrderStatus, res.Changed)
				return nil
			})
		},
	}
}

func forceStatusCmd(timeout *time.Duration) *cobra.Command {
	var paymentDate string
	cmd := &cobra.Command{
		Use:   "force-status <order_code> <paid|pending|failed>",
		Short: "Override an order's payment status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(c *bootstrap.Container) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
				defer cancel()

				out, err := c.OrderSvc.ForcePaymentStatus(ctx, args[0], &service.ForceStatusRequest{
					Status:      args[1],
					PaymentDate: paymentDate,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: payment=%s order=%s changed=%t\n",
					out.OrderCode, out.PaymentStatus, out.OrderStatus, out.Changed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&paymentDate, "payment-date", "", "paid-at timestamp, YYYY-MM-DD HH:MM:SS")
	return cmd
}
