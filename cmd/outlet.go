package cmd

import (
	"context"
	"strconv"

	"github.com/openpdu/wattboxctl/pkg/wattbox"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var outletCmd = &cobra.Command{
	Use:   "outlet",
	Short: "Control individual PDU outlets",
	Long:  `A collection of commands to switch and power-cycle single outlets by their 1-based outlet number.`,
}

var outletOnCmd = &cobra.Command{
	Use:   "on [number]",
	Short: "Power on an outlet",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOutletCommand(args[0], "on", func(ctx context.Context, client *wattbox.Client, n int) error {
			return client.TurnOn(ctx, n)
		})
	},
}

var outletOffCmd = &cobra.Command{
	Use:   "off [number]",
	Short: "Power off an outlet",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOutletCommand(args[0], "off", func(ctx context.Context, client *wattbox.Client, n int) error {
			return client.TurnOff(ctx, n)
		})
	},
}

var outletResetCmd = &cobra.Command{
	Use:   "reset [number]",
	Short: "Power-cycle an outlet",
	Long:  "Issues a momentary power-cycle. This is the only control that works on reset-only outlets.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOutletCommand(args[0], "reset", func(ctx context.Context, client *wattbox.Client, n int) error {
			return client.Reset(ctx, n)
		})
	},
}

func runOutletCommand(arg, action string, fn func(context.Context, *wattbox.Client, int) error) {
	number, err := strconv.Atoi(arg)
	if err != nil || number < 1 {
		log.Error().Str("outlet", arg).Msg("outlet number must be a positive integer")
		return
	}

	client, err := wattbox.NewClient(clientConfig())
	if err != nil {
		log.Error().Err(err).Msg("failed to create PDU client")
		return
	}
	defer client.Close()

	if err := fn(context.Background(), client, number); err != nil {
		log.Error().Err(err).Int("outlet", number).Msgf("failed to %s outlet", action)
		return
	}
	log.Info().Int("outlet", number).Msgf("outlet %s command accepted", action)
}

func init() {
	outletCmd.AddCommand(outletOnCmd)
	outletCmd.AddCommand(outletOffCmd)
	outletCmd.AddCommand(outletResetCmd)
	rootCmd.AddCommand(outletCmd)
}
