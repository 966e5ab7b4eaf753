package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/edgewatch/livepatrol/internal/domain/settings"
	"go.uber.org/zap"
)

// chromeUserAgent is sent on every resolution request; the upstream live API
// rejects non-browser agents.
const chromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

// ErrNotLive reports that the channel exists but is not currently streaming.
// It is an ordinary outcome, not a fault: callers treat it the same as a
// failed lookup and leave the channel eligible for the next patrol pass.
var ErrNotLive = errors.New("channel not live")

// ProxyPolicy is the resolved proxy rule for one attempt. It is read from
// the global settings at attempt start and then fixed for the attempt's
// lifetime, so a settings edit mid-capture never affects a running attempt.
type ProxyPolicy struct {
	Mode settings.ProxyMode
	URL  string
}

// PolicyFromSettings extracts the proxy policy from a settings record.
func PolicyFromSettings(s *settings.Settings) ProxyPolicy {
	return ProxyPolicy{Mode: s.ProxyMode, URL: s.ProxyURL}
}

// CaptureProxyURL returns the proxy URL to hand to the capture process.
// Only the custom policy is forwarded; direct and system resolve to "".
func (p ProxyPolicy) CaptureProxyURL() string {
	if p.Mode == settings.ProxyCustom && p.URL != "" {
		return p.URL
	}
	return ""
}

// Resolver resolves whether a channel is live and, if so, returns a playable
// media locator for the capture process.
type Resolver interface {
	// Resolve returns the best-quality stream locator for the room, or
	// ErrNotLive. Any other error is a resolution fault (network, decode).
	Resolve(ctx context.Context, roomID string, policy ProxyPolicy) (string, error)
}

// LiveResolver resolves rooms against the live platform's web enter API.
//
// The proxy policy is applied by building a per-call http.Client whose
// transport carries the policy, so concurrent resolutions under different
// policies never see each other's proxy configuration and ambient
// environment state is never touched.
type LiveResolver struct {
	log *zap.Logger

	// apiBase and watchBase are split so tests can point the API at a local
	// server while keeping realistic Referer headers.
	apiBase   string
	watchBase string
	timeout   time.Duration
}

func NewLiveResolver(log *zap.Logger) *LiveResolver {
	return &LiveResolver{
		log:       log.Named("resolver"),
		apiBase:   "https://live.douyin.com",
		watchBase: "https://live.douyin.com",
		timeout:   15 * time.Second,
	}
}

// flv quality keys, best first. The first key present wins.
var qualityOrder = []string{"FULL_HD1", "HD1", "SD1", "SD2"}

// enterResponse is the subset of the room enter payload we consume.
type enterResponse struct {
	Data struct {
		Data []struct {
			Status    int `json:"status"` // 2 = live
			StreamURL struct {
				FLVPullURL map[string]string `json:"flv_pull_url"`
				HLSPullURL map[string]string `json:"hls_pull_url_map"`
			} `json:"stream_url"`
		} `json:"data"`
	} `json:"data"`
	StatusCode int `json:"status_code"`
}

func (r *LiveResolver) Resolve(ctx context.Context, roomID string, policy ProxyPolicy) (string, error) {
	watchURL := r.watchBase + "/" + roomID

	reqURL := fmt.Sprintf(
		"%s/webcast/room/web/enter/?aid=6383&device_platform=web&browser_name=Chrome&browser_version=114.0.0.0&web_rid=%s",
		r.apiBase, url.QueryEscape(roomID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUserAgent)
	req.Header.Set("Referer", watchURL)

	client, err := r.clientFor(policy)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("room enter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("room enter request: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var enter enterResponse
	if err := json.Unmarshal(body, &enter); err != nil {
		return "", fmt.Errorf("decode room payload: %w", err)
	}

	if len(enter.Data.Data) == 0 {
		return "", ErrNotLive
	}
	room := enter.Data.Data[0]
	if room.Status != 2 {
		return "", ErrNotLive
	}

	if locator := bestVariant(room.StreamURL.FLVPullURL); locator != "" {
		return locator, nil
	}
	if locator := bestVariant(room.StreamURL.HLSPullURL); locator != "" {
		return locator, nil
	}
	return "", ErrNotLive
}

// clientFor builds the per-call HTTP client carrying the proxy policy.
// Threading the policy through the transport (instead of mutating ambient
// proxy environment around the call) keeps concurrent resolutions under
// different policies fully isolated.
func (r *LiveResolver) clientFor(policy ProxyPolicy) (*http.Client, error) {
	transport := &http.Transport{}

	switch policy.Mode {
	case settings.ProxyDirect:
		transport.Proxy = nil // bypass ambient proxy configuration
	case settings.ProxySystem:
		transport.Proxy = http.ProxyFromEnvironment
	case settings.ProxyCustom:
		u, err := url.Parse(policy.URL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	default:
		return nil, fmt.Errorf("unknown proxy mode %q", policy.Mode)
	}

	return &http.Client{Transport: transport, Timeout: r.timeout}, nil
}

// bestVariant picks the highest-quality URL from a variant map.
// Known quality keys are preferred in order; otherwise any entry serves as a
// fallback so an unknown grading scheme still resolves.
func bestVariant(variants map[string]string) string {
	for _, q := range qualityOrder {
		if u := variants[q]; u != "" {
			return u
		}
	}
	for _, u := range variants {
		if u != "" {
			return u
		}
	}
	return ""
}
