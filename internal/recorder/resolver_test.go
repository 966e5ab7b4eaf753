package recorder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edgewatch/livepatrol/internal/domain/settings"
	"go.uber.org/zap"
)

func newTestResolver(apiBase string) *LiveResolver {
	r := NewLiveResolver(zap.NewNop())
	r.apiBase = apiBase
	r.watchBase = "https://live.example.com"
	r.timeout = 2 * time.Second
	return r
}

func directPolicy() ProxyPolicy {
	return ProxyPolicy{Mode: settings.ProxyDirect}
}

// enterPayload renders a minimal room enter response.
func enterPayload(status int, flv, hls string) string {
	return fmt.Sprintf(`{
		"status_code": 0,
		"data": {"data": [{
			"status": %d,
			"stream_url": {"flv_pull_url": %s, "hls_pull_url_map": %s}
		}]}
	}`, status, flv, hls)
}

func TestResolveLivePicksBestFLV(t *testing.T) {
	var gotUA, gotReferer, gotRID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotRID = r.URL.Query().Get("web_rid")
		fmt.Fprint(w, enterPayload(2,
			`{"SD1": "http://cdn/sd.flv", "FULL_HD1": "http://cdn/fhd.flv"}`,
			`{}`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	locator, err := r.Resolve(context.Background(), "123", directPolicy())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if locator != "http://cdn/fhd.flv" {
		t.Errorf("locator = %q, want the FULL_HD1 variant", locator)
	}
	if gotUA != chromeUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotReferer != "https://live.example.com/123" {
		t.Errorf("Referer = %q", gotReferer)
	}
	if gotRID != "123" {
		t.Errorf("web_rid = %q", gotRID)
	}
}

func TestResolveFallsBackToHLS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, enterPayload(2, `{}`, `{"HD1": "http://cdn/hd.m3u8"}`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	locator, err := r.Resolve(context.Background(), "123", directPolicy())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if locator != "http://cdn/hd.m3u8" {
		t.Errorf("locator = %q, want the HLS variant", locator)
	}
}

func TestResolveNotLive(t *testing.T) {
	for name, payload := range map[string]string{
		"offline status": enterPayload(4, `{"FULL_HD1": "http://cdn/stale.flv"}`, `{}`),
		"no room data":   `{"status_code": 0, "data": {"data": []}}`,
		"no variants":    enterPayload(2, `{}`, `{}`),
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, payload)
		}))

		r := newTestResolver(srv.URL)
		_, err := r.Resolve(context.Background(), "123", directPolicy())
		srv.Close()

		if !errors.Is(err, ErrNotLive) {
			t.Errorf("%s: err = %v, want ErrNotLive", name, err)
		}
	}
}

func TestResolveUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	_, err := r.Resolve(context.Background(), "123", directPolicy())
	if err == nil {
		t.Fatal("upstream 502 accepted")
	}
	if errors.Is(err, ErrNotLive) {
		t.Error("upstream fault conflated with not-live")
	}
}

func TestResolveRejectsUnknownProxyMode(t *testing.T) {
	r := newTestResolver("http://127.0.0.1:0")
	_, err := r.Resolve(context.Background(), "123", ProxyPolicy{Mode: "weird"})
	if err == nil {
		t.Fatal("unknown proxy mode accepted")
	}
}

func TestResolveDirectIgnoresProxyEnv(t *testing.T) {
	// With an unreachable proxy in the environment, the direct policy must
	// still connect straight to the server.
	t.Setenv("HTTP_PROXY", "http://127.0.0.1:1")
	t.Setenv("http_proxy", "http://127.0.0.1:1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, enterPayload(2, `{"SD1": "http://cdn/sd.flv"}`, `{}`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	locator, err := r.Resolve(context.Background(), "123", directPolicy())
	if err != nil {
		t.Fatalf("Resolve under poisoned proxy env: %v", err)
	}
	if locator != "http://cdn/sd.flv" {
		t.Errorf("locator = %q", locator)
	}
}

func TestCaptureProxyURL(t *testing.T) {
	if got := (ProxyPolicy{Mode: settings.ProxyDirect, URL: "http://p:1"}).CaptureProxyURL(); got != "" {
		t.Errorf("direct policy forwarded proxy %q", got)
	}
	if got := (ProxyPolicy{Mode: settings.ProxySystem, URL: "http://p:1"}).CaptureProxyURL(); got != "" {
		t.Errorf("system policy forwarded proxy %q", got)
	}
	if got := (ProxyPolicy{Mode: settings.ProxyCustom, URL: "http://p:1"}).CaptureProxyURL(); got != "http://p:1" {
		t.Errorf("custom policy proxy = %q", got)
	}
}
