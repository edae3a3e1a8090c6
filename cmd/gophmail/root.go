package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "gophmail",
	Short:         "gophmail account and access service.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, usersCmd)
}
