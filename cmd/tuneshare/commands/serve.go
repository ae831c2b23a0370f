package commands

import (
	"fmt"

	"github.com/SpatiumPortae/tuneshare/internal/hub"
	"github.com/SpatiumPortae/tuneshare/internal/semver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Serve(version string) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local directory hub",
		Long:  "The serve command runs the directory web server and coordinator endpoints locally.",
		Args:  cobra.MatchAll(cobra.ExactArgs(0), cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("hub_port", cmd.Flags().Lookup("port")); err != nil {
				return fmt.Errorf("binding port flag: %w", err)
			}
			if err := viper.BindPFlag("hub_shared_dir", cmd.Flags().Lookup("shared-dir")); err != nil {
				return fmt.Errorf("binding shared-dir flag: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ver, err := semver.Parse(version)
			if err != nil {
				return fmt.Errorf("server requires version to be set: %w", err)
			}
			server := hub.NewServer(viper.GetInt("hub_port"), viper.GetString("hub_shared_dir"), ver)
			return server.Start()
		},
	}
	serveCmd.Flags().IntP("port", "p", 0, "port to run the tuneshare hub on")
	serveCmd.Flags().String("shared-dir", "", "directory uploaded files are stored in")
	return serveCmd
}
