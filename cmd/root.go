// The cmd package implements the interface for the wattboxctl CLI. The
// files contained in this package only contain implementations for
// handling CLI arguments and passing them to functions within
// wattboxctl's internal API and the pkg/wattbox device client.
//
// For example:
//
//	cmd/monitor.go --> internal/monitor.go ( wattboxctl.Monitor() )
//	cmd/status.go  --> none (calls pkg/wattbox directly since it's simple)
//	cmd/outlet.go  --> none (calls pkg/wattbox directly since it's simple)
package cmd

import (
	"fmt"
	"os"
	"os/user"
	"time"

	wattboxctl "github.com/openpdu/wattboxctl/internal"
	"github.com/openpdu/wattboxctl/internal/log"
	"github.com/openpdu/wattboxctl/pkg/wattbox"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logLevel = log.INFO

// The `root` command doesn't do anything on its own except display
// a help message and then exits.
var rootCmd = &cobra.Command{
	Use:   "wattboxctl",
	Short: "WattBox WB-800 PDU control and monitoring tool",
	Long:  "Controls and monitors SnapAV WattBox WB-800 series PDUs by scraping their embedded web interface, which has no documented API.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := log.InitWithLogLevel(logLevel, viper.GetString("log-path")); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			err := cmd.Help()
			if err != nil {
				zlog.Error().Err(err).Msg("failed to print help")
			}
			os.Exit(0)
		}
	},
}

// This Execute() function is called from main to run the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitializeConfig)
	rootCmd.PersistentFlags().StringP("host", "H", "", "Set the PDU host, host:port, or base URL")
	rootCmd.PersistentFlags().StringP("username", "u", "", "Set the PDU username")
	rootCmd.PersistentFlags().StringP("password", "p", "", "Set the PDU password")
	rootCmd.PersistentFlags().IntP("timeout", "t", 10, "Set the timeout for requests in seconds")
	rootCmd.PersistentFlags().Bool("insecure", false, "Set to skip TLS certificate verification")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Set the config file path")
	rootCmd.PersistentFlags().Var(&logLevel, "log-level", "Set the logging level")
	rootCmd.PersistentFlags().String("log-path", "", "Set a file path to also write logs to")
	rootCmd.PersistentFlags().String("cache", fmt.Sprintf("/tmp/%s/wattboxctl/energy.db", currentUsername()), "Set the energy state cache path")

	// bind viper config flags with cobra
	checkBindFlagError(viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host")))
	checkBindFlagError(viper.BindPFlag("username", rootCmd.PersistentFlags().Lookup("username")))
	checkBindFlagError(viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password")))
	checkBindFlagError(viper.BindEnv("password", "WATTBOX_PASSWORD"))
	checkBindFlagError(viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout")))
	checkBindFlagError(viper.BindPFlag("insecure", rootCmd.PersistentFlags().Lookup("insecure")))
	checkBindFlagError(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))
	checkBindFlagError(viper.BindPFlag("log-path", rootCmd.PersistentFlags().Lookup("log-path")))
	checkBindFlagError(viper.BindPFlag("cache", rootCmd.PersistentFlags().Lookup("cache")))
}

func checkBindFlagError(err error) {
	if err != nil {
		zlog.Error().Err(err).Msg("failed to bind cobra/viper flag")
	}
}

// InitializeConfig() initializes the viper config from a file when the
// --config flag (or WATTBOXCTL env vars) point at one.
func InitializeConfig() {
	viper.AutomaticEnv()
	if path := viper.GetString("config"); path != "" {
		if err := wattboxctl.LoadConfig(path); err != nil {
			zlog.Error().Err(err).Msg("failed to load config")
		}
	}
}

// clientConfig assembles the device client config shared by every
// command that talks to the PDU.
func clientConfig() wattbox.Config {
	return wattbox.Config{
		Host:     viper.GetString("host"),
		Username: viper.GetString("username"),
		Password: viper.GetString("password"),
		Insecure: viper.GetBool("insecure"),
		Timeout:  time.Duration(viper.GetInt("timeout")) * time.Second,
	}
}

func currentUsername() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "wattboxctl"
}
