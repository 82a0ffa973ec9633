package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tubebot",
	Short: "tubebot is a team chat bot for lunch, restaurants and fortunes",
	Long: `tubebot listens on team chat (Slack, Discord, Telegram, Feishu, DingTalk),
answers lunch menu, restaurant and daily fortune requests, and posts
scheduled announcements to the home channel.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
