package main

import (
	"fmt"
	"os"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/commands"
	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Injected at build time via -ldflags "-X main.version=vX.Y.Z".
var version = "v0.0.0"

// rootCmd is the top level `tuneshare` command on which the other subcommands are attached to.
var rootCmd = &cobra.Command{
	Use:   "tuneshare",
	Short: "tuneshare shares and fetches audio files through a peer directory.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
			return fmt.Errorf("binding verbose flag: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(func() {
		if err := config.Init(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	})
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug information to a file on the format `.tuneshare-[command].log` in the current directory")

	rootCmd.AddCommand(commands.Session())
	rootCmd.AddCommand(commands.Share())
	rootCmd.AddCommand(commands.Download(version))
	rootCmd.AddCommand(commands.Search())
	rootCmd.AddCommand(commands.Files())
	rootCmd.AddCommand(commands.Peers())
	rootCmd.AddCommand(commands.Watch())
	rootCmd.AddCommand(commands.Serve(version))
	rootCmd.AddCommand(commands.Config())
	rootCmd.AddCommand(commands.Version(version))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
