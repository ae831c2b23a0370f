package session_test

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/SpatiumPortae/tuneshare/internal/audio"
	"github.com/SpatiumPortae/tuneshare/internal/session"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type uploads struct {
	mu    sync.Mutex
	files map[string]string
}

// handler stores uploads and rejects files named reject.flac.
func (u *uploads) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, testID.PeerID, r.FormValue(directory.FieldPeerID))
		f, header, err := r.FormFile(directory.FieldFile)
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		if header.Filename == "reject.flac" {
			writeJSON(w, directory.Response{Status: directory.StatusFailure, Message: "disk full"})
			return
		}
		b, _ := io.ReadAll(f)
		u.mu.Lock()
		u.files[header.Filename] = string(b)
		u.mu.Unlock()
		writeJSON(w, directory.Response{Status: directory.StatusSuccess, Message: "File uploaded successfully"})
	}
}

func TestShare(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		var c calls
		up := &uploads{files: map[string]string{}}
		proxy := newServer(t, &c, map[string]http.HandlerFunc{directory.UploadPath: up.handler(t)})
		s := newSession(t, session.Config{ProxyURL: proxy.URL})

		path := writeFile(t, t.TempDir(), "song.mp3", "ID3 la la la")
		msg, err := s.Share(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "File uploaded successfully", msg)
		assert.Equal(t, "ID3 la la la", up.files["song.mp3"])
		assert.Empty(t, s.Uploads())
	})
	t.Run("rejected by server", func(t *testing.T) {
		var c calls
		up := &uploads{files: map[string]string{}}
		proxy := newServer(t, &c, map[string]http.HandlerFunc{directory.UploadPath: up.handler(t)})
		s := newSession(t, session.Config{ProxyURL: proxy.URL})

		_, err := s.Share(context.Background(), writeFile(t, t.TempDir(), "reject.flac", "fLaC"))
		var statusErr *directory.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "disk full", statusErr.Message)
	})
	t.Run("unreachable server", func(t *testing.T) {
		s := newSession(t, session.Config{ProxyURL: "http://" + closedAddr(t)})
		_, err := s.Share(context.Background(), writeFile(t, t.TempDir(), "song.mp3", "x"))
		assert.ErrorContains(t, err, "uploading song.mp3")
	})
	t.Run("missing file", func(t *testing.T) {
		var c calls
		proxy := newServer(t, &c, nil)
		s := newSession(t, session.Config{ProxyURL: proxy.URL})
		_, err := s.Share(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"))
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, 0, c.get(directory.UploadPath))
	})
}

func TestShareBatch(t *testing.T) {
	var c calls
	up := &uploads{files: map[string]string{}}
	proxy := newServer(t, &c, map[string]http.HandlerFunc{directory.UploadPath: up.handler(t)})
	s := newSession(t, session.Config{ProxyURL: proxy.URL})

	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "song.mp3", "ID3"),
		writeFile(t, dir, "notes.txt", "not audio"),
		writeFile(t, dir, "reject.flac", "fLaC"),
		writeFile(t, dir, "LOUD.WAV", "RIFF"),
	}
	results := s.ShareBatch(context.Background(), paths)
	require.Len(t, results, 4)

	assert.Equal(t, session.ShareResult{File: "song.mp3", Success: true, Message: "File uploaded successfully"}, results[0])

	assert.Equal(t, "notes.txt", results[1].File)
	assert.False(t, results[1].Success)
	assert.Equal(t, audio.RejectionMessage, results[1].Message)
	assert.ErrorIs(t, results[1].Err, audio.ErrUnsupportedType)

	assert.Equal(t, "reject.flac", results[2].File)
	assert.False(t, results[2].Success)
	assert.Contains(t, results[2].Message, "disk full")

	assert.Equal(t, "LOUD.WAV", results[3].File)
	assert.True(t, results[3].Success)

	assert.Equal(t, 3, c.get(directory.UploadPath))
	assert.NotContains(t, up.files, "notes.txt")
}
