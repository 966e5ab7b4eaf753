package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

// writeScript drops an executable fake capture binary into dir.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// lastArgOut is shell that resolves the output path (final argv element).
const lastArgOut = `for a in "$@"; do out=$a; done` + "\n"

func newTestSupervisor(t *testing.T, bin string) *Supervisor {
	t.Helper()
	s := NewSupervisor(zap.NewNop(), bin)
	s.gracePeriod = 200 * time.Millisecond
	return s
}

func testRequest(t *testing.T) CaptureRequest {
	t.Helper()
	return CaptureRequest{
		ChannelID: "123",
		Locator:   "https://example.com/live.flv",
		Ext:       "mkv",
		OutputDir: t.TempDir(),
		Start:     time.Now(),
	}
}

func TestCaptureFinalizesOnNaturalExit(t *testing.T) {
	bin := writeScript(t, t.TempDir(), lastArgOut+`echo "fake capture log" >&2
echo data > "$out"
exit 0
`)
	s := newTestSupervisor(t, bin)
	req := testRequest(t)

	var logBuf LogBuffer
	res, err := s.Capture(context.Background(), req, &logBuf)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if res.Stopped {
		t.Error("natural exit reported as stopped")
	}
	if res.FinalPath == "" {
		t.Fatal("no final path after natural exit")
	}
	if _, err := os.Stat(res.FinalPath); err != nil {
		t.Errorf("final file missing: %v", err)
	}
	if _, err := ParseFinalName(filepath.Base(res.FinalPath)); err != nil {
		t.Errorf("final name does not parse: %v", err)
	}

	// Provisional file must be gone.
	entries, err := os.ReadDir(req.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("provisional file left behind: %s", e.Name())
		}
	}

	lines := logBuf.Read(0)
	if len(lines) == 0 || lines[0] != "fake capture log" {
		t.Errorf("stderr not captured: %v", lines)
	}
}

func TestCaptureStopTerminatesAndFinalizes(t *testing.T) {
	bin := writeScript(t, t.TempDir(), lastArgOut+`echo data > "$out"
trap 'exit 0' TERM
while :; do sleep 0.05; done
`)
	s := newTestSupervisor(t, bin)
	req := testRequest(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	var logBuf LogBuffer
	res, err := s.Capture(ctx, req, &logBuf)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !res.Stopped {
		t.Error("stop not reported")
	}
	if res.FinalPath == "" {
		t.Fatal("recording not finalized after stop")
	}
	if _, err := os.Stat(res.FinalPath); err != nil {
		t.Errorf("final file missing: %v", err)
	}
}

func TestCaptureKillsAfterGracePeriod(t *testing.T) {
	// Ignores TERM; only the follow-up KILL ends it.
	bin := writeScript(t, t.TempDir(), lastArgOut+`echo data > "$out"
trap '' TERM
while :; do sleep 0.05; done
`)
	s := newTestSupervisor(t, bin)
	req := testRequest(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	var logBuf LogBuffer
	start := time.Now()
	res, err := s.Capture(ctx, req, &logBuf)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("kill took too long: %v", elapsed)
	}
	if !res.Stopped {
		t.Error("stop not reported")
	}
	// Finalization still runs after a forced kill.
	if res.FinalPath == "" {
		t.Error("recording not finalized after kill")
	}
}

func TestCaptureNoOutputProduced(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "exit 1\n")
	s := newTestSupervisor(t, bin)
	req := testRequest(t)

	var logBuf LogBuffer
	res, err := s.Capture(context.Background(), req, &logBuf)
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got: %v", err)
	}
	if res.FinalPath != "" {
		t.Errorf("final path %q for a run that wrote nothing", res.FinalPath)
	}
}

func TestCaptureToolMissing(t *testing.T) {
	s := newTestSupervisor(t, "livepatrol-no-such-binary")
	req := testRequest(t)

	var logBuf LogBuffer
	_, err := s.Capture(context.Background(), req, &logBuf)
	if !errors.Is(err, ErrToolMissing) {
		t.Errorf("err = %v, want ErrToolMissing", err)
	}
}
