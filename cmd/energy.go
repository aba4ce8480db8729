package cmd

import (
	"fmt"

	"github.com/openpdu/wattboxctl/internal/cache/sqlite"
	"github.com/openpdu/wattboxctl/internal/format"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var energyFormat = format.FORMAT_LIST

var energyCmd = &cobra.Command{
	Use:   "energy",
	Short: "Show accumulated energy totals from the cache",
	Long:  "Reads the integrator snapshots persisted by the monitor command. With --host unset, snapshots for every monitored PDU are shown.",
	Run: func(cmd *cobra.Command, args []string) {
		states, err := sqlite.GetEnergyStates(viper.GetString("cache"), viper.GetString("host"))
		if err != nil {
			log.Error().Err(err).Msg("failed to read energy cache")
			return
		}
		if len(states) == 0 {
			fmt.Println("no energy state recorded yet")
			return
		}

		if energyFormat == format.FORMAT_LIST {
			for _, state := range states {
				fmt.Printf("%s %-12s %10.3f kWh\n", state.Host, state.Point, state.EnergyKwh)
			}
			return
		}
		b, err := format.Marshal(states, energyFormat)
		if err != nil {
			log.Error().Err(err).Msg("failed to format energy state")
			return
		}
		fmt.Println(string(b))
	},
}

var energyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the accumulated totals for a PDU",
	Run: func(cmd *cobra.Command, args []string) {
		host := viper.GetString("host")
		if host == "" {
			log.Error().Msg("--host is required for energy reset")
			return
		}
		if err := sqlite.DeleteEnergyStates(viper.GetString("cache"), host); err != nil {
			log.Error().Err(err).Msg("failed to reset energy state")
			return
		}
		log.Info().Str("host", host).Msg("energy state reset")
	},
}

func init() {
	energyCmd.Flags().Var(&energyFormat, "format", "Set the output format (list|json|yaml)")
	energyCmd.AddCommand(energyResetCmd)
	rootCmd.AddCommand(energyCmd)
}
