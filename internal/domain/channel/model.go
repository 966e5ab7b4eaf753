package channel

import (
	"errors"
	"fmt"
)

// Channel is one tracked live-stream source.
//
// The ID is the upstream room ID (digit string) and is the unique key for
// everything else in the system: the repo entry, the registry slot, and the
// on-disk recording directory all hang off it.
type Channel struct {
	ID           string            `json:"id"`            // room ID, digit string
	Remark       string            `json:"remark"`        // display label, free text
	FFmpegParams map[string]string `json:"ffmpeg_params"` // per-channel encode overrides (may be empty)
}

func (ch *Channel) Validate() error {
	if err := ValidateID(ch.ID); err != nil {
		return err
	}

	// remark: required, maxLength 100
	if len(ch.Remark) < 1 {
		return errors.New("remark must be at least 1 character")
	}
	if len(ch.Remark) > 100 {
		return errors.New("remark must be at most 100 characters")
	}

	for k, v := range ch.FFmpegParams {
		if k == "" {
			return errors.New("ffmpeg_params keys must be non-empty")
		}
		if len(k) > 64 || len(v) > 256 {
			return fmt.Errorf("ffmpeg_params entry %q too long", k)
		}
	}

	return nil
}

// ValidateID checks a room ID in isolation (used by both the model and the
// HTTP path-param middleware).
func ValidateID(id string) error {
	if len(id) < 1 {
		return errors.New("id must be at least 1 character")
	}
	if len(id) > 64 {
		return errors.New("id must be at most 64 characters")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return errors.New("id must contain digits only")
		}
	}
	return nil
}
