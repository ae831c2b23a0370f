package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/config"
	download_tui "github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui/download"
	"github.com/SpatiumPortae/tuneshare/internal/file"
	"github.com/SpatiumPortae/tuneshare/internal/semver"
	"github.com/SpatiumPortae/tuneshare/internal/session"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errDownloadDeclined = errors.New("download declined, existing file kept")

func Download(version string) *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download [file]",
		Short: "Download a shared file",
		Long:  "The download command fetches a file shared by a peer through the directory web server.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindConnectionFlags(cmd); err != nil {
				return err
			}
			if err := viper.BindPFlag("download_dir", cmd.Flags().Lookup("dir")); err != nil {
				return fmt.Errorf("binding dir flag: %w", err)
			}
			if err := viper.BindPFlag("stream_progress", cmd.Flags().Lookup("stream")); err != nil {
				return fmt.Errorf("binding stream flag: %w", err)
			}

			// Reverse the --yes/-y flag value as it has an inverse relationship
			// with the configuration value 'prompt_overwrite_files'.
			overwriteFlag := cmd.Flags().Lookup("yes")
			if overwriteFlag.Changed {
				shouldOverwrite, _ := strconv.ParseBool(overwriteFlag.Value.String())
				_ = overwriteFlag.Value.Set(strconv.FormatBool(!shouldOverwrite))
			}
			if err := viper.BindPFlag("prompt_overwrite_files", overwriteFlag); err != nil {
				return fmt.Errorf("binding yes flag: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			peerFlag, _ := cmd.Flags().GetString("peer")
			peer, err := directory.ParsePeerAddr(peerFlag)
			if err != nil {
				return fmt.Errorf("parsing --peer: %w", err)
			}
			dir := viper.GetString("download_dir")
			file.RemoveTemporaryFiles(dir, file.DOWNLOAD_TEMP_FILE_NAME_PREFIX)

			saver, err := overwriteSaver(dir, filename)
			if err != nil {
				return err
			}
			s, lgr, err := newSession("download", session.WithSaver(saver))
			if err != nil {
				return err
			}
			defer lgr.Sync() //nolint:errcheck

			switch viper.GetString("tui_style") {
			case config.StyleRich:
				if err := handleDownloadCommand(version, s, filename, peer); err != nil {
					return fmt.Errorf("running rich download command: %w", err)
				}
				return nil
			case config.StyleRaw:
				if err := handleDownloadCommandRaw(version, s, filename, peer); err != nil {
					return fmt.Errorf("running raw download command: %w", err)
				}
				return nil
			default:
				return errors.New("invalid tui style provided")
			}
		},
	}
	addConnectionFlags(downloadCmd)
	downloadCmd.Flags().String("peer", "", "Address of the peer sharing the file (host:port)")
	downloadCmd.Flags().StringP("dir", "d", "", "Directory to save the file in")
	downloadCmd.Flags().BoolP("yes", "y", false, "Overwrite existing files without [Y/n] prompts")
	downloadCmd.Flags().Bool("stream", false, "Report progress while bytes are received")
	_ = downloadCmd.MarkFlagRequired("peer")
	return downloadCmd
}

// overwriteSaver decides how an already existing download is handled: overwritten after
// confirmation, or silently when prompts are disabled.
func overwriteSaver(dir, filename string) (*file.Saver, error) {
	if !file.Exists(dir, filename) || !viper.GetBool("prompt_overwrite_files") {
		return file.NewSaver(dir, true), nil
	}
	prompt := confirmation.New(fmt.Sprintf("Overwrite file '%s'?", filename), confirmation.Yes)
	prompt.Template = confirmation.TemplateYN
	prompt.ResultTemplate = confirmation.ResultTemplateYN
	overwrite, err := prompt.RunPrompt()
	if err != nil {
		return nil, fmt.Errorf("prompting for overwrite: %w", err)
	}
	if !overwrite {
		return nil, errDownloadDeclined
	}
	return file.NewSaver(dir, true), nil
}

// ------------------------------------------------------ Handlers -----------------------------------------------------

func handleDownloadCommand(version string, s *session.Session, filename string, peer directory.PeerAddr) error {
	var opts []download_tui.Option
	ver, err := semver.Parse(version)
	if err == nil {
		opts = append(opts, download_tui.WithVersion(ver))
	}
	final, err := download_tui.New(s, filename, peer, opts...).Run()
	if err != nil {
		return fmt.Errorf("running download tui: %w", err)
	}
	fmt.Println("")
	_, err = download_tui.Result(final)
	return err
}

func handleDownloadCommandRaw(version string, s *session.Session, filename string, peer directory.PeerAddr) error {
	ctx := context.Background()
	if ver, err := semver.Parse(version); err == nil {
		serverVer, err := semver.FetchServerVersion(ctx, nil, s.Config().ProxyURL)
		if err == nil && !ver.Compatible(serverVer) {
			return fmt.Errorf("incompatible version %s -> %s", ver, serverVer)
		}
	}
	path, err := s.Download(ctx, filename, peer, func(percent float64) {
		fmt.Printf("\r%5.1f%%", percent)
	})
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
