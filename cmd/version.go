package cmd

import (
	"github.com/spf13/cobra"

	"github.com/elastic/dorothy/internal/message"
	"github.com/elastic/dorothy/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Dorothy",
	Long:  `All software has versions. This is Dorothy's`,
	Run: func(cmd *cobra.Command, args []string) {
		message.Info("%s", version.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
