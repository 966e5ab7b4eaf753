package channel

import (
	"reflect"
	"testing"
)

func TestEffectiveParamsDefaults(t *testing.T) {
	got := EffectiveParams(nil)
	want := []Param{
		{"c:v", "copy"},
		{"c:a", "copy"},
		{"f", "mkv"},
		{"bsf:a", "aac_adtstoasc"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EffectiveParams(nil) = %v, want %v", got, want)
	}
}

func TestEffectiveParamsOverrideInPlace(t *testing.T) {
	got := EffectiveParams(map[string]string{"c:v": "libx264", "f": "mp4"})
	want := []Param{
		{"c:v", "libx264"},
		{"c:a", "copy"},
		{"f", "mp4"},
		{"bsf:a", "aac_adtstoasc"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEffectiveParamsNoBitstreamFilterWhenReencoding(t *testing.T) {
	got := EffectiveParams(map[string]string{"c:a": "aac"})
	for _, p := range got {
		if p.Key == "bsf:a" {
			t.Errorf("bsf:a emitted with re-encoded audio: %v", got)
		}
	}
}

func TestEffectiveParamsExtrasSorted(t *testing.T) {
	got := EffectiveParams(map[string]string{"preset": "fast", "crf": "23"})
	want := []Param{
		{"c:v", "copy"},
		{"c:a", "copy"},
		{"f", "mkv"},
		{"crf", "23"},
		{"preset", "fast"},
		{"bsf:a", "aac_adtstoasc"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEffectiveFormat(t *testing.T) {
	if got := EffectiveFormat(nil); got != "mkv" {
		t.Errorf("EffectiveFormat(nil) = %q, want mkv", got)
	}
	if got := EffectiveFormat(map[string]string{"f": "ts"}); got != "ts" {
		t.Errorf("EffectiveFormat(f=ts) = %q, want ts", got)
	}
	if got := EffectiveFormat(map[string]string{"f": ""}); got != "mkv" {
		t.Errorf("EffectiveFormat(f empty) = %q, want mkv", got)
	}
}
