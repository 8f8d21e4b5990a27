package app

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/zurustar/smfplay/pkg/fileutil"
)

// SoundFontLocation represents the location of a SoundFont file.
type SoundFontLocation struct {
	// Path is the path to the SoundFont file
	Path string
	// FileSystem is the FileSystem to use for loading (nil for external files)
	FileSystem fileutil.FileSystem
	// IsEmbedded indicates whether the SoundFont is embedded
	IsEmbedded bool
}

// DefaultSoundFontName is the default SoundFont filename to search for.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// EmbeddedSoundFontsDir is the directory searched in the embedded file system.
const EmbeddedSoundFontsDir = "soundfonts"

// findSoundFont searches for a SoundFont file in the following order:
// 1. The explicitly requested file (--soundfont or SMFPLAY_SOUNDFONT)
// 2. Embedded soundfonts directory
// 3. Current directory (external)
// 4. Directory of the input song (external)
//
// Returns nil if none is found.
func findSoundFont(embedFS fs.FS, explicit, inputPath string) *SoundFontLocation {
	// 1. Explicit path is used as given; loading reports a missing file.
	if explicit != "" {
		return &SoundFontLocation{Path: explicit}
	}

	// 2. Check embedded soundfonts directory
	if embedFS != nil {
		if data, err := fs.ReadFile(embedFS, path.Join(EmbeddedSoundFontsDir, DefaultSoundFontName)); err == nil && len(data) > 0 {
			return &SoundFontLocation{
				Path:       DefaultSoundFontName, // FileSystemのベースパスが"soundfonts"なので、ファイル名だけ
				FileSystem: fileutil.NewEmbedFS(embedFS, EmbeddedSoundFontsDir),
				IsEmbedded: true,
			}
		}
	}

	// 3. Check current directory (external)
	if _, err := os.Stat(DefaultSoundFontName); err == nil {
		return &SoundFontLocation{Path: DefaultSoundFontName}
	}

	// 4. Check the song's directory (external)
	if inputPath != "" {
		sfPath := filepath.Join(filepath.Dir(inputPath), DefaultSoundFontName)
		if _, err := os.Stat(sfPath); err == nil {
			return &SoundFontLocation{Path: sfPath}
		}
	}

	return nil
}
