// Command fimd is the file integrity monitoring daemon: it loads a root
// configuration document, drives scheduled scans, and optionally layers
// realtime intake on top of them. Roots that request whodata are logged and
// monitored by scheduled scans only.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func rootMain(command *cobra.Command, arguments []string) {
	if rootConfiguration.version {
		fmt.Println(Version)
		return
	}
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:   "fimd",
	Short: "fimd is a host-based file integrity monitoring daemon",
	Run:   rootMain,
}

var rootConfiguration struct {
	help    bool
	version bool
}

func init() {
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVarP(&rootConfiguration.version, "version", "V", false, "Show version information")

	cobra.EnableCommandSorting = false

	rootCommand.AddCommand(
		runCommand,
		scanOnceCommand,
		versionCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
