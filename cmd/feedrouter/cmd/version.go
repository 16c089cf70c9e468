package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the feedrouter CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("feedrouter version %s\n", version)
		fmt.Println("A price feed routing core with primary/fallback failover")
		fmt.Println("https://github.com/rustyeddy/feedrouter")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
