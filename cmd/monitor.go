package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	wattboxctl "github.com/openpdu/wattboxctl/internal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the PDU and accumulate per-outlet energy",
	Long: `Polls the PDU status page at a fixed interval, integrates the power
readings into cumulative kWh per outlet and for the whole device, and
persists the totals to the cache so they survive restarts.`,
	Run: func(cmd *cobra.Command, args []string) {
		config := clientConfig()
		params := &wattboxctl.MonitorParams{
			Host:      config.Host,
			Username:  config.Username,
			Password:  config.Password,
			Insecure:  config.Insecure,
			Timeout:   viper.GetInt("timeout"),
			Interval:  viper.GetInt("interval"),
			CachePath: viper.GetString("cache"),
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := wattboxctl.Monitor(ctx, params); err != nil {
			log.Error().Err(err).Msg("monitor exited with error")
		}
	},
}

func init() {
	monitorCmd.Flags().IntP("interval", "i", 30, "Set the polling interval in seconds")
	checkBindFlagError(viper.BindPFlag("interval", monitorCmd.Flags().Lookup("interval")))
	rootCmd.AddCommand(monitorCmd)
}
