package channel

import "sort"

// Param is one ffmpeg output parameter, emitted as "-<Key> <Value>".
type Param struct {
	Key   string
	Value string
}

// Global encode defaults: stream copy into an mkv container.
// Channel overrides replace these key-by-key (flat replacement, no merge depth).
var defaultParams = []Param{
	{"c:v", "copy"},
	{"c:a", "copy"},
	{"f", "mkv"},
}

// Known option values, mirrored from the upstream tool's menus. These are
// hints for clients; values are passed through to ffmpeg unvalidated.
var (
	VideoCodecs = []string{"copy", "libx264", "libx265", "h264_nvenc", "hevc_nvenc", "h264_amf", "hevc_amf", "h264_qsv", "hevc_qsv"}
	AudioCodecs = []string{"copy", "aac", "mp3", "opus"}
	Presets     = []string{"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow"}
	Formats     = []string{"flv", "mkv", "mp4", "ts"}
)

// EffectiveParams layers channel overrides onto the defaults and returns the
// ordered parameter list handed to the capture process.
//
// Ordering is deterministic: defaults in their fixed order (overridden in
// place), then any extra override keys sorted lexicographically. When the
// effective audio codec is "copy" a trailing "bsf:a aac_adtstoasc" is
// appended to fix ADTS framing for the target container; it is derived here
// at every call and never persisted.
func EffectiveParams(overrides map[string]string) []Param {
	out := make([]Param, 0, len(defaultParams)+len(overrides)+1)

	seen := make(map[string]struct{}, len(defaultParams))
	for _, p := range defaultParams {
		seen[p.Key] = struct{}{}
		if v, ok := overrides[p.Key]; ok {
			p.Value = v
		}
		out = append(out, p)
	}

	extra := make([]string, 0, len(overrides))
	for k := range overrides {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, Param{k, overrides[k]})
	}

	if audioCodec(out) == "copy" {
		out = append(out, Param{"bsf:a", "aac_adtstoasc"})
	}
	return out
}

// EffectiveFormat returns the effective container format ("f"), which doubles
// as the output file extension.
func EffectiveFormat(overrides map[string]string) string {
	if f, ok := overrides["f"]; ok && f != "" {
		return f
	}
	return "mkv"
}

func audioCodec(params []Param) string {
	for _, p := range params {
		if p.Key == "c:a" {
			return p.Value
		}
	}
	return ""
}
