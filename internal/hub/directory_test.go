package hub_test

import (
	"testing"

	"github.com/SpatiumPortae/tuneshare/internal/hub"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/stretchr/testify/assert"
)

func TestDirectory(t *testing.T) {
	d := hub.NewDirectory()
	a := directory.PeerAddr{Host: "10.0.0.1", Port: 5001}
	b := directory.PeerAddr{Host: "10.0.0.2", Port: 5002}
	d.Register("cli_a", a)
	d.Register("cli_b", b)
	d.AddFile("shared.mp3", "cli_a")
	d.AddFile("shared.mp3", "cli_b")
	d.AddFile("shared.mp3", "cli_b")
	d.AddFile("only-a.flac", "cli_a")

	t.Run("search", func(t *testing.T) {
		assert.Equal(t, map[string][]directory.PeerAddr{"shared.mp3": {a, b}}, d.Search("SHARED"))
		assert.Len(t, d.Search(""), 2)
	})
	t.Run("touch", func(t *testing.T) {
		assert.True(t, d.Touch("cli_a"))
		assert.False(t, d.Touch("cli_x"))
	})
	t.Run("unregister", func(t *testing.T) {
		assert.True(t, d.Unregister("cli_a"))
		assert.False(t, d.Unregister("cli_a"))
		assert.Equal(t, []string{"shared.mp3"}, d.Files())
		assert.Equal(t, map[string][]directory.PeerAddr{"shared.mp3": {b}}, d.Search("shared"))
		assert.Equal(t, []directory.Peer{{ID: "cli_b", Addr: b}}, d.Peers())
	})
}
