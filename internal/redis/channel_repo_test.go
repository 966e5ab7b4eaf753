package redis

import (
	"errors"
	"testing"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
)

func TestChannelKeys(t *testing.T) {
	if got := channelKey("123"); got != "livepatrol:channel:123" {
		t.Errorf("channelKey = %q", got)
	}

	keys := channelKeys([]string{"1", "2"})
	if len(keys) != 2 || keys[0] != "livepatrol:channel:1" || keys[1] != "livepatrol:channel:2" {
		t.Errorf("channelKeys = %v", keys)
	}
}

func TestParseMGetValues(t *testing.T) {
	keys := []string{"livepatrol:channel:1", "livepatrol:channel:2"}

	chs, err := parseMGetValues(keys, []interface{}{
		`{"id":"1","remark":"a"}`,
		`{"id":"2","remark":"b","ffmpeg_params":{"f":"ts"}}`,
	})
	if err != nil {
		t.Fatalf("parseMGetValues: %v", err)
	}
	if len(chs) != 2 || chs[0].ID != "1" || chs[1].FFmpegParams["f"] != "ts" {
		t.Errorf("parsed channels = %+v", chs)
	}

	// A nil slot means the index SET references a missing key.
	_, err = parseMGetValues(keys, []interface{}{`{"id":"1"}`, nil})
	if !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("err = %v, want ErrChannelNotFound", err)
	}

	// Unexpected value type.
	if _, err := parseMGetValues(keys[:1], []interface{}{42}); err == nil {
		t.Error("non-string MGET value accepted")
	}
}

func TestDecodeChannelRejectsGarbage(t *testing.T) {
	if _, err := decodeChannel([]byte("{")); err == nil {
		t.Error("truncated JSON accepted")
	}

	ch, err := decodeChannel([]byte(`{"id":"42","remark":"r"}`))
	if err != nil {
		t.Fatalf("decodeChannel: %v", err)
	}
	want := channel.Channel{ID: "42", Remark: "r"}
	if ch.ID != want.ID || ch.Remark != want.Remark {
		t.Errorf("decoded = %+v, want %+v", ch, want)
	}
}
