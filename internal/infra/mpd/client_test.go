package mpd_test

import (
	"testing"

	"github.com/Haven-hvn/haven-player-sub000/internal/infra/mpd"
	"github.com/Haven-hvn/haven-player-sub000/internal/media"
)

func TestNewClient(t *testing.T) {
	client := mpd.NewClient("localhost", 6600, "")

	if client == nil {
		t.Error("NewClient should return a non-nil client")
	}
}

func TestClientConnectFailure(t *testing.T) {
	// Test connection to non-existent server
	client := mpd.NewClient("localhost", 16600, "") // Wrong port

	err := client.Connect()
	if err == nil {
		t.Error("Connect should fail for non-existent server")
		client.Close()
	}
}

func TestClientPingWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	err := client.Ping()
	if err == nil {
		t.Error("Ping should fail when not connected")
	}
}

func TestClientStatusWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	_, err := client.Status()
	if err == nil {
		t.Error("Status should fail when not connected")
	}
}

func TestClientPlayWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	err := client.Play()
	if err == nil {
		t.Error("Play should fail when not connected")
	}
}

func TestClientPauseWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	err := client.Pause(true)
	if err == nil {
		t.Error("Pause should fail when not connected")
	}
}

func TestClientStopWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	err := client.Stop()
	if err == nil {
		t.Error("Stop should fail when not connected")
	}
}

func TestClientSeekWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	err := client.Seek(30)
	if err == nil {
		t.Error("Seek should fail when not connected")
	}
}

func TestClientSetVolumeWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	err := client.SetVolume(50)
	if err == nil {
		t.Error("SetVolume should fail when not connected")
	}
}

func TestClientSetRepeatWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	err := client.SetRepeat(true)
	if err == nil {
		t.Error("SetRepeat should fail when not connected")
	}
}

func TestClientClearWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	err := client.Clear()
	if err == nil {
		t.Error("Clear should fail when not connected")
	}
}

func TestClientAddWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	err := client.Add("test.flac")
	if err == nil {
		t.Error("Add should fail when not connected")
	}
}

func TestElementPlayWithoutSource(t *testing.T) {
	el := mpd.NewElement(mpd.NewClient("localhost", 16600, ""))

	if err := el.Play(); err == nil {
		t.Error("Play should fail with no source loaded")
	}
}

func TestElementDefaultsWithoutDaemon(t *testing.T) {
	el := mpd.NewElement(mpd.NewClient("localhost", 16600, ""))

	if got := el.CurrentTime(); got != 0 {
		t.Errorf("CurrentTime without daemon should be 0, got %v", got)
	}
	if got := el.Duration(); got != 0 {
		t.Errorf("Duration without daemon should be 0, got %v", got)
	}
	if got := el.Buffered(); got != nil {
		t.Errorf("Buffered without daemon should be nil, got %v", got)
	}
	if got := el.ReadyState(); got != media.HaveNothing {
		t.Errorf("ReadyState without daemon should be HaveNothing, got %v", got)
	}
	if !el.Paused() {
		t.Error("Paused without daemon should be true")
	}
	if el.Ended() {
		t.Error("Ended should be false before playback ever starts")
	}
	if got := el.Source(); got != "" {
		t.Errorf("Source should start empty, got %q", got)
	}
}

func TestElementSetSourceWithoutDaemon(t *testing.T) {
	el := mpd.NewElement(mpd.NewClient("localhost", 16600, ""))

	if err := el.SetSource("test.flac"); err == nil {
		t.Error("SetSource should fail when the daemon is unreachable")
	}
}

func TestElementSetPlaybackRateIsAccepted(t *testing.T) {
	el := mpd.NewElement(mpd.NewClient("localhost", 16600, ""))

	// Rate control is not supported by the daemon but must not error, so the
	// controller can treat it as best effort.
	if err := el.SetPlaybackRate(1.5); err != nil {
		t.Errorf("SetPlaybackRate should not error, got %v", err)
	}
}
