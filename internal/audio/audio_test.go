package audio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SpatiumPortae/tuneshare/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccepted(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		want     bool
	}{
		{"song.mp3", "", true},
		{"SONG.FLAC", "", true},
		{"take.m4a", "application/octet-stream", true},
		{"loop.wav", "", true},
		{"voice.ogg", "audio/ogg", true},
		{"notes.txt", "text/plain", false},
		{"cover.png", "image/png", false},
		{"mp3", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, audio.Accepted(tc.name, tc.mimeType))
		})
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, content []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, content, 0o644))
		return path
	}

	t.Run("extension", func(t *testing.T) {
		assert.NoError(t, audio.Check(write("song.MP3", []byte("not really an mp3"))))
	})
	t.Run("sniffed", func(t *testing.T) {
		wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00"), make([]byte, 32)...)
		assert.NoError(t, audio.Check(write("recording", wav)))
	})
	t.Run("rejected", func(t *testing.T) {
		err := audio.Check(write("notes.txt", []byte("hello there")))
		assert.ErrorIs(t, err, audio.ErrUnsupportedType)
	})
}
