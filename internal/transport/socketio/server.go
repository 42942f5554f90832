// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/Haven-hvn/haven-player-sub000/internal/playback"
)

// broadcastWindow collapses bursts of state mutations into one push.
const broadcastWindow = 50 * time.Millisecond

// Server handles Socket.io connections and events.
type Server struct {
	io        *socket.Server
	ctrl      *playback.Controller
	limiter   *ConnectionLimiter
	debouncer *BroadcastDebouncer

	mu      sync.RWMutex
	clients map[string]*socket.Socket

	diffMu        sync.Mutex
	lastBroadcast []byte
}

// NewServer creates a new Socket.io server driving the given controller.
// maxExternal caps concurrent non-localhost connections.
func NewServer(ctrl *playback.Controller, maxExternal int) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:      server,
		ctrl:    ctrl,
		limiter: NewConnectionLimiter(maxExternal),
		clients: make(map[string]*socket.Socket),
	}
	s.debouncer = NewBroadcastDebouncer(broadcastWindow, s.BroadcastState)

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := client.Handshake().Address

		allowed, evictedID := s.limiter.TryAdd(clientID, remoteIP)
		if !allowed {
			log.Warn().Str("id", clientID).Str("ip", remoteIP).Msg("Connection rejected")
			client.Disconnect(true)
			return
		}
		if evictedID != "" {
			log.Info().Str("evicted", evictedID).Str("for", clientID).Msg("Evicting oldest external client")
			s.mu.RLock()
			evicted := s.clients[evictedID]
			s.mu.RUnlock()
			if evicted != nil {
				evicted.Disconnect(true)
			}
		}

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		// Control commands
		client.On("getState", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getState")
			s.pushState(client)
		})

		client.On("play", s.command(clientID, "play", s.ctrl.Play))
		client.On("pause", s.command(clientID, "pause", s.ctrl.Pause))
		client.On("togglePlay", s.command(clientID, "togglePlay", s.ctrl.TogglePlay))

		client.On("seek", func(args ...any) {
			if fraction, ok := floatArg(args); ok {
				log.Debug().Str("id", clientID).Float64("fraction", fraction).Msg("seek")
				if err := s.ctrl.Seek(fraction); err != nil {
					log.Error().Err(err).Msg("Seek failed")
				}
			}
		})

		client.On("seekRelative", func(args ...any) {
			if seconds, ok := floatArg(args); ok {
				log.Debug().Str("id", clientID).Float64("seconds", seconds).Msg("seekRelative")
				if err := s.ctrl.SeekRelative(seconds); err != nil {
					log.Error().Err(err).Msg("SeekRelative failed")
				}
			}
		})

		client.On("skipForward", s.command(clientID, "skipForward", s.ctrl.SkipForward))
		client.On("skipBackward", s.command(clientID, "skipBackward", s.ctrl.SkipBackward))
		client.On("frameForward", s.command(clientID, "frameForward", s.ctrl.FrameForward))
		client.On("frameBackward", s.command(clientID, "frameBackward", s.ctrl.FrameBackward))

		client.On("volume", func(args ...any) {
			if vol, ok := floatArg(args); ok {
				log.Debug().Str("id", clientID).Float64("vol", vol).Msg("volume")
				if err := s.ctrl.SetVolume(vol); err != nil {
					log.Error().Err(err).Msg("SetVolume failed")
				}
			}
		})

		client.On("toggleMute", s.command(clientID, "toggleMute", s.ctrl.ToggleMute))

		client.On("setRate", func(args ...any) {
			if rate, ok := floatArg(args); ok {
				log.Debug().Str("id", clientID).Float64("rate", rate).Msg("setRate")
				if err := s.ctrl.SetPlaybackRate(rate); err != nil {
					log.Error().Err(err).Msg("SetPlaybackRate failed")
				}
			}
		})

		client.On("toggleLoop", s.command(clientID, "toggleLoop", s.ctrl.ToggleLoop))
		client.On("toggleFullscreen", s.command(clientID, "toggleFullscreen", s.ctrl.ToggleFullscreen))
		client.On("togglePip", s.command(clientID, "togglePip", s.ctrl.TogglePip))
		client.On("resetPlayer", s.command(clientID, "resetPlayer", s.ctrl.Reset))

		client.On("toggleRemainingTime", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("toggleRemainingTime")
			s.ctrl.ToggleRemainingTime()
		})
		client.On("retry", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("retry")
			s.ctrl.Retry()
		})
		client.On("clearError", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("clearError")
			s.ctrl.ClearError()
		})

		// Element event relays. The UI owns the actual element and forwards
		// its events here for the controller to react to.
		client.On("progress", func(args ...any) { s.ctrl.HandleProgress() })
		client.On("duration", func(args ...any) {
			if d, ok := floatArg(args); ok {
				s.ctrl.HandleDuration(d)
			}
		})
		client.On("ready", func(args ...any) { s.ctrl.HandleReady() })
		client.On("mediaError", func(args ...any) {
			code, message := errorArg(args)
			s.ctrl.HandleError(code, message)
		})
		client.On("waiting", func(args ...any) { s.ctrl.HandleWaiting() })
		client.On("stalled", func(args ...any) { s.ctrl.HandleStalled() })
		client.On("canplay", func(args ...any) { s.ctrl.HandleCanPlay() })
		client.On("canplaythrough", func(args ...any) { s.ctrl.HandleCanPlayThrough() })
		client.On("loadstart", func(args ...any) { s.ctrl.HandleLoadStart() })
		client.On("loadeddata", func(args ...any) { s.ctrl.HandleLoadedData() })
		client.On("suspend", func(args ...any) { s.ctrl.HandleSuspend() })
		client.On("abort", func(args ...any) { s.ctrl.HandleAbort() })
		client.On("ended", func(args ...any) { s.ctrl.HandleEnded() })
		client.On("fullscreenchange", func(args ...any) {
			if active, ok := boolArg(args); ok {
				s.ctrl.HandleFullscreenChange(active)
			}
		})
		client.On("pipchange", func(args ...any) {
			if active, ok := boolArg(args); ok {
				s.ctrl.HandlePiPChange(active)
			}
		})
	})
}

// command wraps a no-argument controller call with logging.
func (s *Server) command(clientID, name string, fn func() error) func(...any) {
	return func(args ...any) {
		log.Debug().Str("id", clientID).Msg(name)
		if err := fn(); err != nil {
			log.Error().Err(err).Str("command", name).Msg("Command failed")
		}
	}
}

// floatArg extracts a float payload, accepting both a bare number and the
// {value: n} envelope.
func floatArg(args []any) (float64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	switch v := args[0].(type) {
	case float64:
		return v, true
	case map[string]interface{}:
		if f, ok := v["value"].(float64); ok {
			return f, true
		}
	}
	return 0, false
}

// boolArg extracts a bool payload, accepting both a bare bool and the
// {value: b} envelope.
func boolArg(args []any) (bool, bool) {
	if len(args) == 0 {
		return false, false
	}
	switch v := args[0].(type) {
	case bool:
		return v, true
	case map[string]interface{}:
		if b, ok := v["value"].(bool); ok {
			return b, true
		}
	}
	return false, false
}

// errorArg extracts {code, message} from a media error payload.
func errorArg(args []any) (int, string) {
	if len(args) == 0 {
		return 0, ""
	}
	m, ok := args[0].(map[string]interface{})
	if !ok {
		return 0, ""
	}
	code := 0
	if c, ok := m["code"].(float64); ok {
		code = int(c)
	}
	message, _ := m["message"].(string)
	return code, message
}

// pushState sends the current snapshot to a client.
func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.ctrl.Snapshot())
}

// BroadcastState sends the current snapshot to all connected clients.
// Snapshots identical to the last broadcast are dropped.
func (s *Server) BroadcastState() {
	snap := s.ctrl.Snapshot()
	if !s.shouldBroadcast(snap) {
		return
	}
	s.io.Emit("pushState", snap)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(snap)
		s.mu.RLock()
		clientCount := len(s.clients)
		s.mu.RUnlock()
		log.Debug().RawJSON("state", data).Int("clients", clientCount).Msg("Broadcast state")
	}
}

// NotifyStateChange is the controller's change listener. Routine updates are
// debounced; error and stall transitions push immediately.
func (s *Server) NotifyStateChange() {
	snap := s.ctrl.Snapshot()
	if snap.Error != nil || snap.Stalled {
		s.debouncer.Flush()
		return
	}
	s.debouncer.Trigger()
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}
