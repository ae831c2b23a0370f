package transferprogress_test

import (
	"testing"
	"time"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui"
	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui/transferprogress"
	"github.com/stretchr/testify/assert"
)

func TestUpdate(t *testing.T) {
	t.Run("percent", func(t *testing.T) {
		m := transferprogress.New()
		updated, _ := m.Update(tui.ProgressMsg(40))
		m = updated.(transferprogress.Model)
		assert.InDelta(t, 40, m.Percent(), 0.001)

		updated, _ = m.Update(tui.ProgressMsg(150))
		m = updated.(transferprogress.Model)
		assert.InDelta(t, 100, m.Percent(), 0.001)
	})
	t.Run("speed estimate", func(t *testing.T) {
		m := transferprogress.New(transferprogress.WithPayloadSize(1000))
		m.TransferStartTime = time.Now().Add(-time.Second)
		updated, _ := m.Update(tui.ProgressMsg(50))
		m = updated.(transferprogress.Model)
		assert.Greater(t, m.TransferSpeedEstimateBps, int64(0))
		assert.Greater(t, m.EstimatedRemainingDuration, time.Duration(0))
	})
}
