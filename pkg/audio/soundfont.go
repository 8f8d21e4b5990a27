package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/zurustar/smfplay/pkg/fileutil"
)

var (
	// ErrNoSoundFont is returned when playback needs a SoundFont and none was given.
	ErrNoSoundFont = errors.New("SoundFont file is required for synthesis")

	// ErrSoundFontNotFound is returned when the SoundFont file cannot be read.
	ErrSoundFontNotFound = errors.New("SoundFont file not found")
)

// LoadSoundFont reads and parses the SoundFont at path through fsys. A nil
// fsys reads from the working directory.
func LoadSoundFont(fsys fileutil.FileSystem, path string) (*meltysynth.SoundFont, error) {
	if path == "" {
		return nil, ErrNoSoundFont
	}
	if fsys == nil {
		fsys = fileutil.NewRealFS("")
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSoundFontNotFound, path, err)
	}

	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont %s: %w", path, err)
	}
	return sf, nil
}
