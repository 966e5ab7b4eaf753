package recorder

import (
	"strings"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
)

// CaptureCommandBuilder builds the final argv for the capture binary.
// Flag order matters to ffmpeg: input options precede -i, output options
// follow it, and the output path comes last.
type CaptureCommandBuilder struct {
	args []string
}

// NewCaptureCommandBuilder creates a builder pre-seeded with the binary name.
func NewCaptureCommandBuilder(bin string) *CaptureCommandBuilder {
	return &CaptureCommandBuilder{args: []string{bin}}
}

// WithFlag adds a bare flag (e.g. "-y").
func (b *CaptureCommandBuilder) WithFlag(flag string) *CaptureCommandBuilder {
	b.args = append(b.args, flag)
	return b
}

// WithValue adds a flag with a value if val is non-empty.
func (b *CaptureCommandBuilder) WithValue(flag, val string) *CaptureCommandBuilder {
	if strings.TrimSpace(val) != "" {
		b.args = append(b.args, flag, val)
	}
	return b
}

// WithParams emits each encode parameter as "-<key> <value>", preserving order.
func (b *CaptureCommandBuilder) WithParams(params []channel.Param) *CaptureCommandBuilder {
	for _, p := range params {
		b.args = append(b.args, "-"+p.Key, p.Value)
	}
	return b
}

// WithOutput appends the output path as the final argument.
func (b *CaptureCommandBuilder) WithOutput(path string) *CaptureCommandBuilder {
	b.args = append(b.args, path)
	return b
}

// BuildArgs returns the constructed argv slice.
func (b *CaptureCommandBuilder) BuildArgs() []string {
	out := make([]string, len(b.args))
	copy(out, b.args)
	return out
}

// BuildString returns a single shell-safe command string for logging.
func (b *CaptureCommandBuilder) BuildString() string {
	quoted := make([]string, len(b.args))
	for i, a := range b.args {
		quoted[i] = shQuote(a)
	}
	return strings.Join(quoted, " ")
}

// shQuote wraps s in single quotes, escaping any internal single quotes.
func shQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " '\"\\$&|<>;*?()[]{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// BuildCaptureArgs maps one capture request onto the external tool's argv:
//
//	ffmpeg -y [-http_proxy URL] -i LOCATOR {-key value}... PROVISIONAL
//
// -y overwrites a leftover provisional file from a crashed attempt. The
// proxy flag is emitted only under the custom proxy policy; direct and
// system policies never reach the capture process.
func BuildCaptureArgs(bin, locator, proxyURL string, params []channel.Param, outPath string) []string {
	return NewCaptureCommandBuilder(bin).
		WithFlag("-y").
		WithValue("-http_proxy", proxyURL).
		WithValue("-i", locator).
		WithParams(params).
		WithOutput(outPath).
		BuildArgs()
}
