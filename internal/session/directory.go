package session

import (
	"context"
	"fmt"
	"net/url"

	"github.com/SpatiumPortae/tuneshare/protocol/directory"
)

// Search returns the files whose name matches keyword, keyed by filename.
func (s *Session) Search(ctx context.Context, keyword string) (map[string][]directory.PeerAddr, error) {
	var res directory.SearchResponse
	u := s.endpoint(directory.SearchPath) + "?" + url.Values{directory.QueryKeyword: {keyword}}.Encode()
	if err := s.getJSON(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("searching for %q: %w", keyword, err)
	}
	if err := res.Err("search"); err != nil {
		return nil, err
	}
	if res.Results == nil {
		res.Results = map[string][]directory.PeerAddr{}
	}
	return res.Results, nil
}

// ListFiles returns the names of every file known to the directory.
func (s *Session) ListFiles(ctx context.Context) ([]string, error) {
	var res directory.FilesResponse
	if err := s.getJSON(ctx, s.endpoint(directory.FilesPath), &res); err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	if err := res.Err("list files"); err != nil {
		return nil, err
	}
	return res.Files, nil
}

// ListPeers returns the registered peers.
func (s *Session) ListPeers(ctx context.Context) ([]directory.Peer, error) {
	var res directory.PeersResponse
	if err := s.getJSON(ctx, s.endpoint(directory.PeersPath), &res); err != nil {
		return nil, fmt.Errorf("listing peers: %w", err)
	}
	if err := res.Err("list peers"); err != nil {
		return nil, err
	}
	return res.Peers, nil
}
