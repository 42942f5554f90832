// Package prefs persists player preferences in a local key-value store.
//
// Each preference lives under its own fixed key as a JSON-encoded value.
// Reads degrade to a fixed default per key when an entry is missing or
// unreadable; writes are best-effort and must never block playback.
package prefs

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Fixed preference keys.
const (
	KeyVolume = "player.volume"
	KeyMuted  = "player.muted"
	KeyRate   = "player.rate"
)

// Defaults used when an entry is missing or malformed.
const (
	DefaultVolume = 0.8
	DefaultMuted  = false
	DefaultRate   = 1.0
)

// Store is the key-value port backing preference persistence. Get reports
// whether the key exists; errors are returned so callers can decide how to
// degrade (the loaders below fall back to defaults).
type Store interface {
	Get(key string) (value []byte, found bool, err error)
	Put(key string, value []byte) error
	Close() error
}

// Playback holds the persisted playback preferences.
type Playback struct {
	Volume float64
	Muted  bool
	Rate   float64
}

// Load reads the three preference entries. Each read is independently
// guarded: a missing or malformed entry falls back to its default rather
// than failing the load.
func Load(s Store) Playback {
	p := Playback{Volume: DefaultVolume, Muted: DefaultMuted, Rate: DefaultRate}
	if s == nil {
		return p
	}

	if raw, found, err := s.Get(KeyVolume); err != nil {
		log.Warn().Err(err).Str("key", KeyVolume).Msg("Preference read failed, using default")
	} else if found {
		var v float64
		if json.Unmarshal(raw, &v) == nil && v >= 0 && v <= 1 {
			p.Volume = v
		}
	}

	if raw, found, err := s.Get(KeyMuted); err != nil {
		log.Warn().Err(err).Str("key", KeyMuted).Msg("Preference read failed, using default")
	} else if found {
		var m bool
		if json.Unmarshal(raw, &m) == nil {
			p.Muted = m
		}
	}

	if raw, found, err := s.Get(KeyRate); err != nil {
		log.Warn().Err(err).Str("key", KeyRate).Msg("Preference read failed, using default")
	} else if found {
		var r float64
		if json.Unmarshal(raw, &r) == nil && r > 0 {
			p.Rate = r
		}
	}

	return p
}

// SaveVolume writes the volume preference.
func SaveVolume(s Store, v float64) error {
	return putJSON(s, KeyVolume, v)
}

// SaveMuted writes the mute preference.
func SaveMuted(s Store, muted bool) error {
	return putJSON(s, KeyMuted, muted)
}

// SaveRate writes the playback-rate preference.
func SaveRate(s Store, rate float64) error {
	return putJSON(s, KeyRate, rate)
}

func putJSON(s Store, key string, v interface{}) error {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, raw)
}
