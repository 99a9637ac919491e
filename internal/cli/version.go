package cli

import "github.com/spf13/cobra"

// Version is overridable at build time with -ldflags.
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the raglab version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("raglab " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
