package recorder

import (
	"reflect"
	"testing"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
)

func TestBuildCaptureArgsOrder(t *testing.T) {
	params := []channel.Param{
		{Key: "c:v", Value: "copy"},
		{Key: "c:a", Value: "copy"},
		{Key: "f", Value: "mkv"},
		{Key: "bsf:a", Value: "aac_adtstoasc"},
	}
	got := BuildCaptureArgs("ffmpeg", "https://example.com/live.flv", "", params, "out/123_x_recording.mkv.tmp")
	want := []string{
		"ffmpeg", "-y",
		"-i", "https://example.com/live.flv",
		"-c:v", "copy", "-c:a", "copy", "-f", "mkv", "-bsf:a", "aac_adtstoasc",
		"out/123_x_recording.mkv.tmp",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("argv = %v, want %v", got, want)
	}
}

func TestBuildCaptureArgsProxyPrecedesInput(t *testing.T) {
	got := BuildCaptureArgs("ffmpeg", "loc", "http://127.0.0.1:7890", nil, "out.tmp")
	want := []string{"ffmpeg", "-y", "-http_proxy", "http://127.0.0.1:7890", "-i", "loc", "out.tmp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("argv = %v, want %v", got, want)
	}
}

func TestBuilderSkipsEmptyValues(t *testing.T) {
	got := NewCaptureCommandBuilder("ffmpeg").
		WithValue("-http_proxy", "").
		WithValue("-http_proxy", "   ").
		WithOutput("out").
		BuildArgs()
	want := []string{"ffmpeg", "out"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("argv = %v, want %v", got, want)
	}
}

func TestBuildStringQuoting(t *testing.T) {
	s := NewCaptureCommandBuilder("ffmpeg").
		WithValue("-i", "http://host/path?a=1&b=2").
		WithOutput("dir with space/out.mkv").
		BuildString()
	want := `ffmpeg -i 'http://host/path?a=1&b=2' 'dir with space/out.mkv'`
	if s != want {
		t.Errorf("BuildString = %q, want %q", s, want)
	}
}
