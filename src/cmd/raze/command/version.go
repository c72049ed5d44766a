package command

import (
	"fmt"

	"github.com/spf13/cobra"

	vers "github.com/razeblock/raze/src/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(vers.Version)
	},
}
