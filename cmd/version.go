package cmd

import (
	"fmt"

	"github.com/openpdu/wattboxctl/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use: "version",
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flag("rev").Value.String() == "true" {
			fmt.Println(version.GitCommit)
		} else {
			fmt.Println(version.VersionInfo())
		}
	},
}

func init() {
	versionCmd.Flags().Bool("rev", false, "show the version commit")
	rootCmd.AddCommand(versionCmd)
}
