package state

import (
	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/event"
)

// ApplyGetConfig returns the current AppConfig.
func (s *State) ApplyGetConfig() (config.AppConfig, error) {
	return s.cfg, nil
}

// ApplySetConfig atomically replaces AppConfig, persisting it before
// publishing AppConfigUpdated so that a crash mid-write never leaves
// subscribers believing a change took effect that storage never saw.
// On persistence failure the in-memory config is left untouched.
func (s *State) ApplySetConfig(cfg config.AppConfig) (config.AppConfig, error) {
	if err := s.store.SaveConfig(cfg); err != nil {
		return config.AppConfig{}, apierr.Wrap(apierr.IoError, err)
	}
	s.cfg = cfg
	s.bus.Publish(event.AppConfigUpdated{Config: cfg, Source: config.SourceAdmin})
	return s.cfg, nil
}
