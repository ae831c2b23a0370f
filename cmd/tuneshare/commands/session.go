package commands

import (
	"context"
	"fmt"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui"
	"github.com/SpatiumPortae/tuneshare/internal/session"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func Session() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Join the directory until interrupted",
		Long:  "The session command registers a peer with the directory and keeps it alive with heartbeats until interrupted.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindConnectionFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, lgr, err := newSession("session")
			if err != nil {
				return err
			}
			defer lgr.Sync() //nolint:errcheck

			ctx, stop := signalContext()
			defer stop()
			startSession(ctx, s)

			if copyID, _ := cmd.Flags().GetBool("copy-id"); copyID {
				if err := clipboard.WriteAll(s.ID().PeerID); err != nil {
					lgr.Warn("copying peer id to clipboard", zap.Error(err))
				} else {
					fmt.Println(tui.PadText + tui.HelpStyle("peer id copied to clipboard"))
				}
			}
			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				if err := printEvents(ctx, s); err != nil {
					fmt.Println(tui.PadText + tui.WarningText(err.Error()))
				}
			}
			<-ctx.Done()
			stopSession(s)
			return nil
		},
	}
	addConnectionFlags(sessionCmd)
	sessionCmd.Flags().BoolP("watch", "w", false, "Print directory updates while the session is running")
	sessionCmd.Flags().Bool("copy-id", false, "Copy the peer id to the clipboard")
	return sessionCmd
}

// startSession starts s and prints its identity.
func startSession(ctx context.Context, s *session.Session) {
	s.Start(ctx)
	id := s.ID()
	fmt.Println(tui.PadText + tui.InfoStyle(fmt.Sprintf("Session %s advertising port %d", tui.BoldText(id.PeerID), id.Port)))
	fmt.Println(tui.PadText + tui.HelpStyle("(ctrl+c to leave the directory)"))
}

// stopSession stops s once the process is asked to terminate.
func stopSession(s *session.Session) {
	s.Stop(context.Background())
	fmt.Println(tui.PadText + tui.InfoStyle("Left the directory"))
}

// printEvents prints directory updates until ctx is done.
func printEvents(ctx context.Context, s *session.Session) error {
	events, err := s.Watch(ctx)
	if err != nil {
		return err
	}
	for ev := range events {
		switch ev.Type {
		case directory.FileListUpdated:
			fmt.Println(tui.PadText + tui.InfoStyle(fmt.Sprintf("files updated: %d shared", len(ev.Files))))
		case directory.PeerListUpdated:
			fmt.Println(tui.PadText + tui.InfoStyle(fmt.Sprintf("peers updated: %d online", len(ev.Peers))))
		}
	}
	return nil
}
