package socketio

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// The UI owns the document, so fullscreen and picture-in-picture requests are
// forwarded to it as events. The UI answers with fullscreenchange/pipchange
// relays once the document state actually flips.

func (s *Server) RequestFullscreen() error {
	return s.emitPresentation("requestFullscreen")
}

func (s *Server) ExitFullscreen() error {
	return s.emitPresentation("exitFullscreen")
}

func (s *Server) RequestPiP() error {
	return s.emitPresentation("requestPip")
}

func (s *Server) ExitPiP() error {
	return s.emitPresentation("exitPip")
}

func (s *Server) emitPresentation(event string) error {
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	if clientCount == 0 {
		return fmt.Errorf("no clients connected to present %s", event)
	}

	log.Debug().Str("event", event).Int("clients", clientCount).Msg("Forwarding presentation request")
	s.io.Emit(event)
	return nil
}
