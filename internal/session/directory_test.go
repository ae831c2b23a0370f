package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/SpatiumPortae/tuneshare/internal/session"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func TestSearch(t *testing.T) {
	t.Run("results", func(t *testing.T) {
		var c calls
		proxy := newServer(t, &c, map[string]http.HandlerFunc{
			directory.SearchPath: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "love song", r.URL.Query().Get(directory.QueryKeyword))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"status":"success","results":{"love song.mp3":[["10.0.0.7",5432],["10.0.0.8","6000"]]}}`))
			},
		})
		s := newSession(t, session.Config{ProxyURL: proxy.URL})

		results, err := s.Search(context.Background(), "love song")
		require.NoError(t, err)
		assert.Equal(t, map[string][]directory.PeerAddr{
			"love song.mp3": {{Host: "10.0.0.7", Port: 5432}, {Host: "10.0.0.8", Port: 6000}},
		}, results)
	})
	t.Run("no results", func(t *testing.T) {
		var c calls
		proxy := newServer(t, &c, nil)
		s := newSession(t, session.Config{ProxyURL: proxy.URL})

		results, err := s.Search(context.Background(), "nothing")
		require.NoError(t, err)
		assert.Empty(t, results)
	})
	t.Run("rejected", func(t *testing.T) {
		var c calls
		proxy := newServer(t, &c, map[string]http.HandlerFunc{
			directory.SearchPath: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, directory.Response{Status: directory.StatusFailure, Message: "backend down"})
			},
		})
		s := newSession(t, session.Config{ProxyURL: proxy.URL})

		_, err := s.Search(context.Background(), "x")
		assert.EqualError(t, err, "search rejected by server: backend down")
	})
}

func TestListing(t *testing.T) {
	var c calls
	proxy := newServer(t, &c, map[string]http.HandlerFunc{
		directory.FilesPath: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, directory.FilesResponse{
				Response: directory.Response{Status: directory.StatusSuccess},
				Files:    []string{"a.mp3", "b.flac"},
			})
		},
		directory.PeersPath: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"success","peers":[["cli_abcd1234",["10.0.0.7",5432]]]}`))
		},
	})
	s := newSession(t, session.Config{ProxyURL: proxy.URL})

	t.Run("files", func(t *testing.T) {
		files, err := s.ListFiles(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a.mp3", "b.flac"}, files)
	})
	t.Run("peers", func(t *testing.T) {
		peers, err := s.ListPeers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []directory.Peer{{ID: "cli_abcd1234", Addr: testPeer}}, peers)
	})
	t.Run("unreachable", func(t *testing.T) {
		s := newSession(t, session.Config{ProxyURL: "http://" + closedAddr(t)})
		_, err := s.ListFiles(context.Background())
		assert.ErrorContains(t, err, "listing files")
		_, err = s.ListPeers(context.Background())
		assert.ErrorContains(t, err, "listing peers")
	})
}

func TestWatch(t *testing.T) {
	var c calls
	proxy := newServer(t, &c, map[string]http.HandlerFunc{
		directory.EventsPath: func(w http.ResponseWriter, r *http.Request) {
			ws, err := websocket.Accept(w, r, nil)
			if !assert.NoError(t, err) {
				return
			}
			ctx := r.Context()
			_ = wsjson.Write(ctx, ws, directory.Event{Type: directory.FileListUpdated, Files: []string{"a.mp3"}})
			_ = wsjson.Write(ctx, ws, directory.Event{Type: directory.PeerListUpdated, Peers: []directory.Peer{{ID: "cli_abcd1234", Addr: testPeer}}})
			ws.Close(websocket.StatusNormalClosure, "")
		},
	})
	s := newSession(t, session.Config{ProxyURL: proxy.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := s.Watch(ctx)
	require.NoError(t, err)

	var got []directory.Event
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	assert.Equal(t, directory.FileListUpdated, got[0].Type)
	assert.Equal(t, []string{"a.mp3"}, got[0].Files)
	assert.Equal(t, directory.PeerListUpdated, got[1].Type)
	assert.Equal(t, testPeer, got[1].Peers[0].Addr)
}
