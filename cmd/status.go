package cmd

import (
	"context"
	"fmt"

	"github.com/openpdu/wattboxctl/internal/format"
	"github.com/openpdu/wattboxctl/pkg/wattbox"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var statusFormat = format.FORMAT_LIST

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch outlet and power metrics state from the PDU",
	Long:  "Loads the PDU status page once and reports both the outlet list and the aggregate voltage/power/current readings derived from it.",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := wattbox.NewClient(clientConfig())
		if err != nil {
			log.Error().Err(err).Msg("failed to create PDU client")
			return
		}
		defer client.Close()

		status, err := client.FetchStatus(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch PDU status")
			return
		}

		if statusFormat == format.FORMAT_LIST {
			printStatusList(status)
			return
		}
		b, err := format.Marshal(status, statusFormat)
		if err != nil {
			log.Error().Err(err).Msg("failed to format PDU status")
			return
		}
		fmt.Println(string(b))
	},
}

func printStatusList(status *wattbox.DeviceStatus) {
	fmt.Printf("voltage: %s V\n", optional(status.Metrics.Voltage))
	fmt.Printf("power:   %s W\n", optional(status.Metrics.TotalWatts))
	fmt.Printf("current: %s A\n", optional(status.Metrics.TotalAmps))
	for _, outlet := range status.Outlets {
		state := "off"
		if outlet.IsOn {
			state = "on"
		}
		if outlet.IsResetOnly {
			state += " (reset-only)"
		}
		fmt.Printf("outlet %d: %-20s %-16s %s W / %s A\n",
			outlet.Number, outlet.Name, state, optional(outlet.Watts), optional(outlet.Amps))
	}
}

// optional renders a possibly-missing reading; absent data is shown as
// "-" rather than a fabricated zero.
func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func init() {
	statusCmd.Flags().Var(&statusFormat, "format", "Set the output format (list|json|yaml)")
	rootCmd.AddCommand(statusCmd)
}
