package mpd

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Haven-hvn/haven-player-sub000/internal/media"
)

// EventSink receives playback events translated from MPD subsystem changes.
// The playback controller satisfies it.
type EventSink interface {
	HandleProgress()
	HandleDuration(seconds float64)
	HandleLoadedData()
	HandleEnded()
	HandleError(code int, message string)
}

// progressInterval paces synthetic progress events. MPD reports position only
// on request, so the pump polls while playing.
const progressInterval = time.Second

// Pump watches the daemon's player subsystem and translates its changes into
// media element events for the sink.
type Pump struct {
	client *Client
	sink   EventSink
}

// NewPump creates a pump feeding sink from client.
func NewPump(client *Client, sink EventSink) *Pump {
	return &Pump{client: client, sink: sink}
}

// Run blocks, dispatching events until ctx is cancelled or the watcher
// channel closes.
func (p *Pump) Run(ctx context.Context) error {
	events, err := p.client.Watch("player", "playlist")
	if err != nil {
		return err
	}

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var (
		lastState    string
		lastSongID   string
		lastDuration float64
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			status, err := p.client.Status()
			if err != nil {
				continue
			}
			if status["state"] == "play" {
				p.sink.HandleProgress()
			}

		case subsystem, ok := <-events:
			if !ok {
				log.Warn().Msg("MPD event stream closed")
				return nil
			}

			status, err := p.client.Status()
			if err != nil {
				p.sink.HandleError(media.ErrCodeNetwork, "lost contact with MPD")
				continue
			}

			state := status["state"]
			songID := status["songid"]
			duration := parseFloat(status["duration"])

			log.Debug().
				Str("subsystem", subsystem).
				Str("state", state).
				Msg("MPD subsystem changed")

			if duration > 0 && duration != lastDuration {
				p.sink.HandleDuration(duration)
			}

			// A new current song with data behind it counts as loaded.
			if songID != "" && songID != lastSongID {
				p.sink.HandleLoadedData()
			}

			// Running off the end of the queue stops the daemon.
			if state == "stop" && lastState == "play" && songID == "" {
				p.sink.HandleEnded()
			}

			if state == "play" {
				p.sink.HandleProgress()
			}

			lastState = state
			lastSongID = songID
			lastDuration = duration
		}
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
