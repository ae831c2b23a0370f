package session_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SpatiumPortae/tuneshare/internal/session"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPeer = directory.PeerAddr{Host: "10.0.0.7", Port: 5432}

// progress records every reported percentage.
type progress struct {
	mu     sync.Mutex
	values []float64
}

func (p *progress) report(pct float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, pct)
}

func (p *progress) get() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.values...)
}

func TestDownload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var c calls
		proxy := newServer(t, &c, map[string]http.HandlerFunc{
			directory.DownloadPath: func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				assert.Equal(t, "song.mp3", q.Get(directory.QueryFilename))
				assert.Equal(t, "10.0.0.7", q.Get(directory.QueryPeerIP))
				assert.Equal(t, "5432", q.Get(directory.QueryPeerPort))
				w.Header().Set("Content-Type", "audio/mpeg")
				_, _ = w.Write([]byte("ID3 bytes"))
			},
		})
		dir := t.TempDir()
		s := newSession(t, session.Config{ProxyURL: proxy.URL, DownloadDir: dir})

		var p progress
		path, err := s.Download(context.Background(), "song.mp3", testPeer, p.report)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "song.mp3"), path)
		assert.Equal(t, []float64{100}, p.get())
		assert.False(t, s.Downloading("song.mp3"))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ID3 bytes", string(content))
	})
	t.Run("http error", func(t *testing.T) {
		var c calls
		proxy := newServer(t, &c, map[string]http.HandlerFunc{
			directory.DownloadPath: http.NotFound,
		})
		s := newSession(t, session.Config{ProxyURL: proxy.URL})

		var p progress
		_, err := s.Download(context.Background(), "song.mp3", testPeer, p.report)
		assert.ErrorContains(t, err, "HTTP 404")
		assert.Empty(t, p.get())
		assert.False(t, s.Downloading("song.mp3"))
	})
	t.Run("unreachable server", func(t *testing.T) {
		s := newSession(t, session.Config{ProxyURL: "http://" + closedAddr(t)})
		_, err := s.Download(context.Background(), "song.mp3", testPeer, nil)
		assert.Error(t, err)
		assert.Empty(t, s.Downloads())
	})
	t.Run("error envelope", func(t *testing.T) {
		var c calls
		proxy := newServer(t, &c, map[string]http.HandlerFunc{
			directory.DownloadPath: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, directory.Response{Status: directory.StatusFailure, Message: "file not found"})
			},
		})
		dir := t.TempDir()
		s := newSession(t, session.Config{ProxyURL: proxy.URL, DownloadDir: dir})

		_, err := s.Download(context.Background(), "song.mp3", testPeer, nil)
		var statusErr *directory.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "file not found", statusErr.Message)
		entries, _ := os.ReadDir(dir)
		assert.Empty(t, entries)
	})
	t.Run("concurrent download of the same file", func(t *testing.T) {
		var c calls
		release := make(chan struct{})
		proxy := newServer(t, &c, map[string]http.HandlerFunc{
			directory.DownloadPath: func(w http.ResponseWriter, r *http.Request) {
				<-release
				_, _ = w.Write([]byte("slow"))
			},
		})
		s := newSession(t, session.Config{ProxyURL: proxy.URL})

		done := make(chan error)
		go func() {
			_, err := s.Download(context.Background(), "song.mp3", testPeer, nil)
			done <- err
		}()
		require.Eventually(t, func() bool { return c.get(directory.DownloadPath) == 1 }, time.Second, time.Millisecond)
		other := directory.PeerAddr{Host: "10.0.0.8", Port: 6000}
		_, err := s.Download(context.Background(), "song.mp3", other, nil)
		assert.ErrorIs(t, err, session.ErrTransferInProgress)
		assert.Equal(t, 1, c.get(directory.DownloadPath))

		downloads := s.Downloads()
		require.Len(t, downloads, 1)
		assert.Equal(t, testPeer, downloads[0].Peer)

		close(release)
		require.NoError(t, <-done)
		assert.False(t, s.Downloading("song.mp3"))
	})
	t.Run("unknown length", func(t *testing.T) {
		var c calls
		release := make(chan struct{})
		proxy := newServer(t, &c, map[string]http.HandlerFunc{
			directory.DownloadPath: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "audio/mpeg")
				_, _ = w.Write([]byte("first"))
				w.(http.Flusher).Flush()
				<-release
				_, _ = w.Write([]byte("second"))
			},
		})
		s := newSession(t, session.Config{ProxyURL: proxy.URL})

		done := make(chan error)
		go func() {
			_, err := s.Download(context.Background(), "song.mp3", testPeer, nil)
			done <- err
		}()
		require.Eventually(t, func() bool {
			downloads := s.Downloads()
			return len(downloads) == 1 && downloads[0].Transferred > 0
		}, time.Second, time.Millisecond)
		assert.Equal(t, int64(0), s.Downloads()[0].Total)

		close(release)
		require.NoError(t, <-done)
	})
	t.Run("streamed progress", func(t *testing.T) {
		payload := strings.Repeat("a", 64*1024)
		var c calls
		proxy := newServer(t, &c, map[string]http.HandlerFunc{
			directory.DownloadPath: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
				w.Header().Set("Content-Type", "audio/mpeg")
				for i := 0; i < len(payload); i += 4096 {
					_, _ = w.Write([]byte(payload[i : i+4096]))
					w.(http.Flusher).Flush()
				}
			},
		})
		s := newSession(t, session.Config{ProxyURL: proxy.URL, StreamProgress: true})

		var p progress
		_, err := s.Download(context.Background(), "song.mp3", testPeer, p.report)
		require.NoError(t, err)
		values := p.get()
		require.NotEmpty(t, values)
		assert.Equal(t, float64(100), values[len(values)-1])
		for i, v := range values[:len(values)-1] {
			assert.Less(t, v, float64(100))
			if i > 0 {
				assert.GreaterOrEqual(t, v, values[i-1])
			}
		}
	})
}
