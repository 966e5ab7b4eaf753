package recorder

import (
	"testing"
	"time"
)

func TestProvisionalName(t *testing.T) {
	start := time.Date(2024, 3, 15, 20, 30, 5, 0, time.Local)
	got := ProvisionalName("123", start, "mkv")
	want := "123_20240315-203005_recording.mkv.tmp"
	if got != want {
		t.Errorf("ProvisionalName = %q, want %q", got, want)
	}
}

func TestFinalNameRoundTrip(t *testing.T) {
	start := time.Date(2024, 3, 15, 20, 30, 5, 0, time.Local)
	end := time.Date(2024, 3, 15, 22, 1, 44, 0, time.Local)

	name := FinalName("123", start, end, "mkv")
	if want := "123_20240315-203005_to_20240315-220144.mkv"; name != want {
		t.Fatalf("FinalName = %q, want %q", name, want)
	}

	rf, err := ParseFinalName(name)
	if err != nil {
		t.Fatalf("ParseFinalName(%q): %v", name, err)
	}
	if rf.ChannelID != "123" {
		t.Errorf("ChannelID = %q, want 123", rf.ChannelID)
	}
	if !rf.Start.Equal(start) {
		t.Errorf("Start = %v, want %v", rf.Start, start)
	}
	if !rf.End.Equal(end) {
		t.Errorf("End = %v, want %v", rf.End, end)
	}
	if rf.Ext != "mkv" {
		t.Errorf("Ext = %q, want mkv", rf.Ext)
	}
}

func TestParseFinalNameRejects(t *testing.T) {
	for _, name := range []string{
		"",
		"notarecording.mkv",
		"123_20240315-203005_recording.mkv.tmp",  // provisional, not final
		"123_20240315-203005_to_20240315-220144", // no extension
		"123_badstamp_to_20240315-220144.mkv",
		"123_20240315-203005_to_badstamp.mkv",
		"123_20240315-203005_to_20240315-220144.mkv/../../victim.bin",
		"123_20240315-203005_to_20240315-220144.mkv\\..\\victim.bin",
		"123_20240315-203005_to_20240315-220144.m kv",
	} {
		if _, err := ParseFinalName(name); err == nil {
			t.Errorf("ParseFinalName(%q) accepted", name)
		}
	}
}
