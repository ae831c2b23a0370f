package commands

import (
	"context"
	"sort"
	"strings"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui/filetable"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/spf13/cobra"
)

func Search() *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search shared files by name",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindConnectionFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, lgr, err := newSession("search")
			if err != nil {
				return err
			}
			defer lgr.Sync() //nolint:errcheck

			results, err := s.Search(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printRows("File", "Peers", searchRows(results))
		},
	}
	addConnectionFlags(searchCmd)
	return searchCmd
}

func Files() *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "List every shared file",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindConnectionFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, lgr, err := newSession("files")
			if err != nil {
				return err
			}
			defer lgr.Sync() //nolint:errcheck

			files, err := s.ListFiles(context.Background())
			if err != nil {
				return err
			}
			rows := make([]filetable.Row, 0, len(files))
			for _, f := range files {
				rows = append(rows, filetable.Row{Name: f})
			}
			return printRows("File", "", rows)
		},
	}
	addConnectionFlags(filesCmd)
	return filesCmd
}

func Peers() *cobra.Command {
	peersCmd := &cobra.Command{
		Use:   "peers",
		Short: "List the registered peers",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindConnectionFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, lgr, err := newSession("peers")
			if err != nil {
				return err
			}
			defer lgr.Sync() //nolint:errcheck

			peers, err := s.ListPeers(context.Background())
			if err != nil {
				return err
			}
			return printRows("Peer", "Address", peerRows(peers))
		},
	}
	addConnectionFlags(peersCmd)
	return peersCmd
}

// searchRows lists the results by filename with the sharing peers joined.
func searchRows(results map[string][]directory.PeerAddr) []filetable.Row {
	rows := make([]filetable.Row, 0, len(results))
	for name, addrs := range results {
		peers := make([]string, 0, len(addrs))
		for _, addr := range addrs {
			peers = append(peers, addr.String())
		}
		rows = append(rows, filetable.Row{Name: name, Info: strings.Join(peers, ", ")})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func peerRows(peers []directory.Peer) []filetable.Row {
	rows := make([]filetable.Row, 0, len(peers))
	for _, p := range peers {
		rows = append(rows, filetable.Row{Name: p.ID, Info: p.Addr.String()})
	}
	return rows
}
