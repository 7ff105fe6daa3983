package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(command *cobra.Command, arguments []string) {
		fmt.Println(Version)
	},
}
