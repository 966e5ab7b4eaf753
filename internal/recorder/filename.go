package recorder

import (
	"fmt"
	"strings"
	"time"
)

// Recording filenames encode the channel and the capture interval:
//
//	provisional: {id}_{start}_recording.{ext}.tmp
//	final:       {id}_{start}_to_{end}.{ext}
//
// timestamps use stampLayout. The provisional name exists only while the
// capture process is running; the rename to the final name happens strictly
// after the process has exited.
const stampLayout = "20060102-150405"

// ProvisionalName returns the in-progress output filename.
func ProvisionalName(channelID string, start time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_recording.%s.tmp", channelID, start.Format(stampLayout), ext)
}

// FinalName returns the finalized recording filename.
func FinalName(channelID string, start, end time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_to_%s.%s", channelID, start.Format(stampLayout), end.Format(stampLayout), ext)
}

// RecordingFile is the parsed form of a finalized recording filename.
type RecordingFile struct {
	Name      string    `json:"name"`
	ChannelID string    `json:"channel_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Ext       string    `json:"ext"`
}

// ParseFinalName parses a finalized recording filename back into its parts.
// Room IDs are digit strings, so the underscore split is unambiguous.
//
// A parsed name is guaranteed to contain no path separators: callers use the
// result to address files under a directory, so anything that is not a plain
// alphanumeric-extension filename is rejected.
func ParseFinalName(name string) (*RecordingFile, error) {
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("not a recording filename: %q", name)
	}

	parts := strings.Split(name, "_")
	if len(parts) != 4 || parts[2] != "to" {
		return nil, fmt.Errorf("not a recording filename: %q", name)
	}

	endPart, ext, ok := strings.Cut(parts[3], ".")
	if !ok || !validExt(ext) {
		return nil, fmt.Errorf("bad extension: %q", name)
	}

	start, err := time.ParseInLocation(stampLayout, parts[1], time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad start timestamp: %q", parts[1])
	}
	end, err := time.ParseInLocation(stampLayout, endPart, time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad end timestamp: %q", endPart)
	}

	return &RecordingFile{
		Name:      name,
		ChannelID: parts[0],
		Start:     start,
		End:       end,
		Ext:       ext,
	}, nil
}

// validExt accepts a container extension: non-empty, alphanumeric only.
func validExt(ext string) bool {
	if ext == "" {
		return false
	}
	for _, r := range ext {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
