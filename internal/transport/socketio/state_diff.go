package socketio

import (
	"bytes"
	"encoding/json"

	"github.com/Haven-hvn/haven-player-sub000/internal/playback"
)

// shouldBroadcast reports whether snap differs from the last broadcast
// snapshot. Controller listeners fire after every mutation, including ones
// that settle on the same value, so identical snapshots are dropped rather
// than pushed to every client again.
func (s *Server) shouldBroadcast(snap playback.Snapshot) bool {
	data, err := json.Marshal(snap)
	if err != nil {
		return true
	}

	s.diffMu.Lock()
	defer s.diffMu.Unlock()

	if s.lastBroadcast != nil && bytes.Equal(s.lastBroadcast, data) {
		return false
	}
	s.lastBroadcast = data
	return true
}
