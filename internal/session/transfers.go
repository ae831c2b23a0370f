package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SpatiumPortae/tuneshare/protocol/directory"
)

var ErrTransferInProgress = errors.New("transfer already in progress")

// Transfer is the bookkeeping entry of one in-progress upload or download.
type Transfer struct {
	Filename    string
	Peer        directory.PeerAddr // zero for uploads
	Total       int64              // 0 if unknown
	Transferred int64
	StartedAt   time.Time
}

// transfers holds at most one Transfer per filename.
type transfers struct {
	mu sync.Mutex
	m  map[string]*Transfer
}

func newTransfers() *transfers {
	return &transfers{m: make(map[string]*Transfer)}
}

// begin registers a transfer, failing if one with the same filename is in flight.
func (t *transfers) begin(filename string, peer directory.PeerAddr) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.m[filename]; ok {
		return fmt.Errorf("%w: %s", ErrTransferInProgress, filename)
	}
	t.m[filename] = &Transfer{
		Filename:  filename,
		Peer:      peer,
		StartedAt: time.Now(),
	}
	return nil
}

func (t *transfers) finish(filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, filename)
}

func (t *transfers) update(filename string, fn func(*Transfer)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.m[filename]; ok {
		fn(tr)
	}
}

func (t *transfers) get(filename string) (Transfer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.m[filename]
	if !ok {
		return Transfer{}, false
	}
	return *tr, true
}

// snapshot returns copies of the in-flight transfers ordered by start time.
func (t *transfers) snapshot() []Transfer {
	t.mu.Lock()
	res := make([]Transfer, 0, len(t.m))
	for _, tr := range t.m {
		res = append(res, *tr)
	}
	t.mu.Unlock()
	sort.Slice(res, func(i, j int) bool {
		if res[i].StartedAt.Equal(res[j].StartedAt) {
			return res[i].Filename < res[j].Filename
		}
		return res[i].StartedAt.Before(res[j].StartedAt)
	})
	return res
}
