package settings

import (
	"errors"
	"fmt"
	"net/url"
)

// ProxyMode selects how outbound resolution and capture traffic reaches the
// network. Exactly one mode is active process-wide at a time.
type ProxyMode string

const (
	// ProxyDirect forces a direct connection even when the environment
	// defines a proxy.
	ProxyDirect ProxyMode = "direct"
	// ProxySystem defers to the ambient environment configuration.
	ProxySystem ProxyMode = "system"
	// ProxyCustom forces the configured URL for both resolution and capture.
	ProxyCustom ProxyMode = "custom"
)

// Settings is the durable global settings record: the daily patrol window
// and the proxy policy. It is read by the patrol scheduler and the resolver
// and written on operator edits.
type Settings struct {
	PatrolStart string    `json:"patrol_start"` // "HH:MM"
	PatrolEnd   string    `json:"patrol_end"`   // "HH:MM"; < PatrolStart means the window wraps past midnight
	ProxyMode   ProxyMode `json:"proxy_mode"`
	ProxyURL    string    `json:"proxy_url"`
}

// Default returns the settings used before the operator saves anything.
func Default() *Settings {
	return &Settings{
		PatrolStart: "20:00",
		PatrolEnd:   "02:00",
		ProxyMode:   ProxyDirect,
		ProxyURL:    "",
	}
}

func (s *Settings) Validate() error {
	switch s.ProxyMode {
	case ProxyDirect, ProxySystem, ProxyCustom:
	default:
		return fmt.Errorf("unknown proxy_mode %q", s.ProxyMode)
	}

	if s.ProxyMode == ProxyCustom {
		if s.ProxyURL == "" {
			return errors.New("proxy_url required for custom proxy_mode")
		}
		u, err := url.Parse(s.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid proxy_url %q", s.ProxyURL)
		}
	}

	// Window strings are validated lazily by the scheduler: a malformed
	// window is a recoverable runtime condition there, not a save-time
	// rejection, matching the upstream behavior. Length caps only.
	if len(s.PatrolStart) > 16 || len(s.PatrolEnd) > 16 {
		return errors.New("patrol window entries too long")
	}
	return nil
}
