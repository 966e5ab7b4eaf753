package settings

import "testing"

func TestDefault(t *testing.T) {
	s := Default()
	if s.PatrolStart != "20:00" || s.PatrolEnd != "02:00" {
		t.Errorf("default window = %s-%s, want 20:00-02:00", s.PatrolStart, s.PatrolEnd)
	}
	if s.ProxyMode != ProxyDirect {
		t.Errorf("default proxy mode = %q, want direct", s.ProxyMode)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("default settings invalid: %v", err)
	}
}

func TestValidateProxy(t *testing.T) {
	s := &Settings{PatrolStart: "20:00", PatrolEnd: "02:00", ProxyMode: "socks-maybe"}
	if err := s.Validate(); err == nil {
		t.Error("unknown proxy mode accepted")
	}

	s = &Settings{PatrolStart: "20:00", PatrolEnd: "02:00", ProxyMode: ProxyCustom}
	if err := s.Validate(); err == nil {
		t.Error("custom mode without URL accepted")
	}

	s.ProxyURL = "not a url"
	if err := s.Validate(); err == nil {
		t.Error("malformed proxy URL accepted")
	}

	s.ProxyURL = "http://127.0.0.1:7890"
	if err := s.Validate(); err != nil {
		t.Errorf("valid custom proxy rejected: %v", err)
	}
}

func TestValidateLeavesWindowToScheduler(t *testing.T) {
	// Malformed windows are saved; the scheduler degrades at runtime instead.
	s := &Settings{PatrolStart: "oops", PatrolEnd: "also oops", ProxyMode: ProxyDirect}
	if err := s.Validate(); err != nil {
		t.Errorf("malformed window rejected at save time: %v", err)
	}
}
