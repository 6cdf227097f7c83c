// internal/session/probe.go
package session

import "github.com/charmbracelet/log"

// Probe opens and closes a throwaway connection to the device.
// It never touches the polling session, so it is safe while polling runs.
func Probe(cfg Config, logger *log.Logger) error {
	s, err := New(cfg, logger)
	if err != nil {
		return err
	}
	if err := s.Connect(); err != nil {
		return err
	}
	return s.Disconnect()
}
