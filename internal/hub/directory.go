// directory.go defines the in-memory peer table and file index of the hub.
package hub

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SpatiumPortae/tuneshare/protocol/directory"
)

type peerEntry struct {
	addr     directory.PeerAddr
	lastSeen time.Time
}

// Directory keeps track of the registered peers and the files they share.
type Directory struct {
	mu    sync.RWMutex
	peers map[string]*peerEntry
	files map[string][]string // filename -> peer ids, in order of sharing
}

func NewDirectory() *Directory {
	return &Directory{
		peers: make(map[string]*peerEntry),
		files: make(map[string][]string),
	}
}

// Register stores the peer, replacing any previous address.
func (d *Directory) Register(id string, addr directory.PeerAddr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[id] = &peerEntry{addr: addr, lastSeen: time.Now()}
}

// Touch marks the peer as alive. It reports false for unknown peers.
func (d *Directory) Touch(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.peers[id]
	if ok {
		p.lastSeen = time.Now()
	}
	return ok
}

// LastSeen returns when the peer last registered or sent a heartbeat.
func (d *Directory) LastSeen(id string) (time.Time, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.peers[id]
	if !ok {
		return time.Time{}, false
	}
	return p.lastSeen, true
}

// Unregister removes the peer and every file only it was sharing.
func (d *Directory) Unregister(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.peers[id]; !ok {
		return false
	}
	delete(d.peers, id)
	for name, owners := range d.files {
		kept := owners[:0]
		for _, owner := range owners {
			if owner != id {
				kept = append(kept, owner)
			}
		}
		if len(kept) == 0 {
			delete(d.files, name)
			continue
		}
		d.files[name] = kept
	}
	return true
}

// AddFile records that the peer shares the file.
func (d *Directory) AddFile(name, peerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, owner := range d.files[name] {
		if owner == peerID {
			return
		}
	}
	d.files[name] = append(d.files[name], peerID)
}

// Search returns the files whose name contains keyword, ignoring case, with the
// addresses of the peers sharing them. Owners that are no longer registered are skipped.
func (d *Directory) Search(keyword string) map[string][]directory.PeerAddr {
	keyword = strings.ToLower(keyword)
	d.mu.RLock()
	defer d.mu.RUnlock()
	results := make(map[string][]directory.PeerAddr)
	for name, owners := range d.files {
		if !strings.Contains(strings.ToLower(name), keyword) {
			continue
		}
		addrs := make([]directory.PeerAddr, 0, len(owners))
		for _, owner := range owners {
			if p, ok := d.peers[owner]; ok {
				addrs = append(addrs, p.addr)
			}
		}
		results[name] = addrs
	}
	return results
}

// Files returns the shared file names in lexical order.
func (d *Directory) Files() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	files := make([]string, 0, len(d.files))
	for name := range d.files {
		files = append(files, name)
	}
	sort.Strings(files)
	return files
}

// Peers returns the registered peers ordered by id.
func (d *Directory) Peers() []directory.Peer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	peers := make([]directory.Peer, 0, len(d.peers))
	for id, p := range d.peers {
		peers = append(peers, directory.Peer{ID: id, Addr: p.addr})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers
}
