package download

import (
	"errors"
	"testing"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui"
	"github.com/SpatiumPortae/tuneshare/internal/session"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	s, err := session.New(&session.Config{DownloadDir: t.TempDir()})
	require.NoError(t, err)
	return newModel(s, "song.mp3", directory.PeerAddr{Host: "10.0.0.7", Port: 5432})
}

func TestResult(t *testing.T) {
	t.Run("aborted", func(t *testing.T) {
		_, err := Result(newTestModel(t))
		assert.EqualError(t, err, "download aborted")
	})
	t.Run("finished", func(t *testing.T) {
		m := newTestModel(t)
		updated, cmd := m.Update(downloadDoneMsg{path: "/tmp/song.mp3", size: 2048})
		assert.NotNil(t, cmd)
		path, err := Result(updated)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/song.mp3", path)
		assert.Contains(t, updated.View(), "song.mp3")
	})
	t.Run("failed", func(t *testing.T) {
		m := newTestModel(t)
		updated, _ := m.Update(tui.ErrorMsg(errors.New("downloading song.mp3: HTTP 404")))
		_, err := Result(updated)
		assert.ErrorContains(t, err, "HTTP 404")
	})
	t.Run("start", func(t *testing.T) {
		m := newTestModel(t)
		updated, cmd := m.Update(startMsg{})
		assert.NotNil(t, cmd)
		assert.Equal(t, showDownloading, updated.(model).state)
		assert.Contains(t, updated.View(), "Downloading")
	})
}
