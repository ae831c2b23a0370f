package commands

import (
	"fmt"
	"os"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui"
	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui/filetable"
	"github.com/spf13/cobra"
)

func Share() *cobra.Command {
	shareCmd := &cobra.Command{
		Use:   "share [file...]",
		Short: "Share audio files",
		Long: "The share command registers a session, uploads the provided audio files and keeps the session alive until interrupted. " +
			"Files that are not audio are skipped.",
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindConnectionFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			s, lgr, err := newSession("share")
			if err != nil {
				return err
			}
			defer lgr.Sync() //nolint:errcheck

			ctx, stop := signalContext()
			defer stop()
			startSession(ctx, s)

			results := s.ShareBatch(ctx, args)
			rows := make([]filetable.Row, 0, len(results))
			shared := 0
			for _, res := range results {
				if res.Success {
					shared++
				}
				rows = append(rows, filetable.Row{Name: res.File, Info: res.Message})
			}
			if err := printRows("File", "Result", rows); err != nil {
				stopSession(s)
				return err
			}
			fmt.Println(tui.PadText + tui.InfoStyle(fmt.Sprintf("Shared %d of %d files", shared, len(results))))

			if detach, _ := cmd.Flags().GetBool("detach"); !detach {
				<-ctx.Done()
			}
			stopSession(s)
			return nil
		},
	}
	addConnectionFlags(shareCmd)
	shareCmd.Flags().Bool("detach", false, "Leave the directory right after uploading")
	return shareCmd
}
