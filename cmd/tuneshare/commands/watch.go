package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Watch prints directory updates until interrupted.
func Watch() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print directory updates as they happen",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindConnectionFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, lgr, err := newSession("watch")
			if err != nil {
				return err
			}
			defer lgr.Sync() //nolint:errcheck

			ctx, stop := signalContext()
			defer stop()
			if err := printEvents(ctx, s); err != nil {
				return fmt.Errorf("watching directory: %w", err)
			}
			return nil
		},
	}
	addConnectionFlags(watchCmd)
	return watchCmd
}
