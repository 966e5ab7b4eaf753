package recorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
	"go.uber.org/zap"
)

var (
	// ErrToolMissing reports that the capture binary is not on PATH.
	// Fatal for the attempt; likely an environment misconfiguration.
	ErrToolMissing = errors.New("capture binary not found")

	// ErrProcessFault reports that the capture process could not be spawned
	// or its process layer failed unexpectedly. A non-zero exit code is NOT
	// a fault: the caller may have terminated the process deliberately.
	ErrProcessFault = errors.New("capture process fault")
)

// CaptureRequest describes one capture run.
type CaptureRequest struct {
	ChannelID string
	Locator   string
	Params    []channel.Param // effective encode parameters, in emit order
	Ext       string          // target container extension
	OutputDir string          // per-channel recordings directory
	ProxyURL  string          // non-empty only under the custom proxy policy
	Start     time.Time
}

// CaptureResult reports how a capture run ended.
type CaptureResult struct {
	FinalPath string // "" when no output was produced or finalization failed
	Stopped   bool   // ctx cancellation (not natural exit) ended the process
}

// Supervisor launches the external capture process, supervises it until exit
// (natural or requested), and finalizes the provisional output file.
//
// Stop semantics: when the context is cancelled it SIGTERMs the process
// group, waits up to gracePeriod for a natural exit, then SIGKILLs. The
// provisional→final rename happens strictly after the process has been
// reaped, on every exit path.
type Supervisor struct {
	log         *zap.Logger
	bin         string
	gracePeriod time.Duration
}

func NewSupervisor(log *zap.Logger, bin string) *Supervisor {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Supervisor{
		log:         log.Named("capture"),
		bin:         bin,
		gracePeriod: 5 * time.Second,
	}
}

func (s *Supervisor) Capture(ctx context.Context, req CaptureRequest, logBuf *LogBuffer) (*CaptureResult, error) {
	log := s.log.With(zap.String("channel_id", req.ChannelID))

	binPath, err := exec.LookPath(s.bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, s.bin)
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", ErrProcessFault, err)
	}

	provisional := filepath.Join(req.OutputDir, ProvisionalName(req.ChannelID, req.Start, req.Ext))
	argv := BuildCaptureArgs(binPath, req.Locator, req.ProxyURL, req.Params, provisional)

	cmd := exec.Command(argv[0], argv[1:]...)
	// New process group so the stop signal reaches ffmpeg's children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrProcessFault, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: spawn: %v", ErrProcessFault, err)
	}

	pid := cmd.Process.Pid
	log.Info("capture process started", zap.Int("pid", pid), zap.String("output", provisional))

	// Drain stderr into the attempt's ring buffer.
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			logBuf.Append(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			logBuf.Append(err.Error())
		}
	}()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- cmd.Wait()
	}()

	stopped := false
	select {
	case waitErr := <-doneCh:
		s.logExit(log, pid, waitErr)

	case <-ctx.Done():
		stopped = true
		log.Info("stop requested, sending SIGTERM to process group", zap.Int("pgid", pid))
		_ = syscall.Kill(-pid, syscall.SIGTERM)

		t := time.NewTimer(s.gracePeriod)
		select {
		case waitErr := <-doneCh:
			t.Stop()
			s.logExit(log, pid, waitErr)
		case <-t.C:
			log.Warn("grace period exceeded, sending SIGKILL",
				zap.Int("pid", pid), zap.Duration("grace", s.gracePeriod))
			_ = syscall.Kill(-pid, syscall.SIGKILL)
			waitErr := <-doneCh // always reap before finalizing
			s.logExit(log, pid, waitErr)
		}
	}

	return s.finalize(log, req, provisional, stopped), nil
}

// finalize renames the provisional file to its final name. Runs only after
// the process has fully exited, so nothing still holds the file open.
func (s *Supervisor) finalize(log *zap.Logger, req CaptureRequest, provisional string, stopped bool) *CaptureResult {
	res := &CaptureResult{Stopped: stopped}

	if _, err := os.Stat(provisional); err != nil {
		if !stopped {
			// Process ended on its own yet left nothing behind; capture was
			// silently lost. Keep at least a log signal.
			log.Warn("temp file missing after capture", zap.String("path", provisional))
		}
		return res
	}

	finalPath := filepath.Join(req.OutputDir, FinalName(req.ChannelID, req.Start, time.Now(), req.Ext))
	if err := os.Rename(provisional, finalPath); err != nil {
		// Non-fatal: the provisional file stays in place for manual recovery.
		log.Warn("finalize rename failed", zap.String("from", provisional), zap.Error(err))
		return res
	}

	log.Info("recording finalized", zap.String("path", finalPath))
	res.FinalPath = finalPath
	return res
}

func (s *Supervisor) logExit(log *zap.Logger, pid int, waitErr error) {
	if waitErr == nil {
		log.Info("capture process exited", zap.Int("pid", pid), zap.Int("exit_code", 0))
		return
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		// Non-zero exit is ordinary here: ffmpeg reports 255 on SIGTERM and
		// the stream ending mid-read is not our failure.
		log.Info("capture process exited", zap.Int("pid", pid), zap.Int("exit_code", exitErr.ExitCode()))
		return
	}
	log.Warn("capture process wait failed", zap.Int("pid", pid), zap.Error(waitErr))
}
