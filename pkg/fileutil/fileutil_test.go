package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestFindFileCaseInsensitive(t *testing.T) {
	// Create a temporary directory for testing
	tmpDir := t.TempDir()

	// Create test files with various cases
	testFiles := []string{
		"Prelude.mml",
		"FUGUE.MID",
		"lowercase.mid",
		"GeneralUser.SF2",
	}

	for _, filename := range testFiles {
		path := filepath.Join(tmpDir, filename)
		if err := os.WriteFile(path, []byte("MThd"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	tests := []struct {
		name          string
		searchName    string
		shouldFind    bool
		expectedMatch string
	}{
		{
			name:          "exact match",
			searchName:    "Prelude.mml",
			shouldFind:    true,
			expectedMatch: "Prelude.mml",
		},
		{
			name:          "lowercase search for mixed case file",
			searchName:    "prelude.mml",
			shouldFind:    true,
			expectedMatch: "Prelude.mml",
		},
		{
			name:          "uppercase search for mixed case file",
			searchName:    "PRELUDE.MML",
			shouldFind:    true,
			expectedMatch: "Prelude.mml",
		},
		{
			name:          "mixed case search for uppercase file",
			searchName:    "Fugue.mid",
			shouldFind:    true,
			expectedMatch: "FUGUE.MID",
		},
		{
			name:          "uppercase search for lowercase file",
			searchName:    "LOWERCASE.MID",
			shouldFind:    true,
			expectedMatch: "lowercase.mid",
		},
		{
			name:       "file not found",
			searchName: "missing.mid",
			shouldFind: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := FindFileCaseInsensitive(tmpDir, tt.searchName)

			if tt.shouldFind {
				if err != nil {
					t.Errorf("Expected to find file, but got error: %v", err)
					return
				}

				actualFilename := filepath.Base(path)
				if actualFilename != tt.expectedMatch {
					t.Errorf("Expected filename %s, got %s", tt.expectedMatch, actualFilename)
				}

				// Verify the file actually exists
				if _, err := os.Stat(path); err != nil {
					t.Errorf("Returned path does not exist: %s", path)
				}
			} else {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Expected ErrNotFound, got path %q err %v", path, err)
				}
			}
		})
	}
}



func TestRealFSReadFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "Song.MID"), []byte("MThd"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	fsys := NewRealFS(tmpDir)
	if fsys.IsEmbedded() {
		t.Error("RealFS reported embedded")
	}

	for _, name := range []string{"Song.MID", "song.mid", "SONG.mid"} {
		t.Run(name, func(t *testing.T) {
			data, err := fsys.ReadFile(name)
			if err != nil {
				t.Fatalf("ReadFile(%q) failed: %v", name, err)
			}
			if string(data) != "MThd" {
				t.Errorf("ReadFile(%q) = %q", name, data)
			}
		})
	}

	abs := NewRealFS("")
	if _, err := abs.ReadFile(filepath.Join(tmpDir, "song.mid")); err != nil {
		t.Errorf("absolute lookup failed: %v", err)
	}
}

func TestEmbedFS(t *testing.T) {
	mem := fstest.MapFS{
		"songs/Demo.MML":    {Data: []byte("t120 cdefgab<c")},
		"songs/Scale.mml":   {Data: []byte("cdefgab")},
		"songs/readme.txt":  {Data: []byte("notes")},
		"songs/sub/x.mid":   {Data: []byte("MThd")},
		"fonts/default.sf2": {Data: []byte("RIFF")},
	}
	fsys := NewEmbedFS(mem, "songs")
	if !fsys.IsEmbedded() {
		t.Error("EmbedFS reported not embedded")
	}

	tests := []struct {
		name string
		want string
	}{
		{"demo.mml", "t120 cdefgab<c"},
		{"/Demo.MML", "t120 cdefgab<c"},
		{"SCALE.MML", "cdefgab"},
		{"sub/X.MID", "MThd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := fsys.ReadFile(tt.name)
			if err != nil {
				t.Fatalf("ReadFile(%q) failed: %v", tt.name, err)
			}
			if string(data) != tt.want {
				t.Errorf("ReadFile(%q) = %q, want %q", tt.name, data, tt.want)
			}
		})
	}

	f, err := fsys.Open("scale.MML")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || string(data) != "cdefgab" {
		t.Errorf("Open read %q, %v", data, err)
	}

	if _, err := fsys.ReadFile("missing.mml"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByExt(t *testing.T) {
	mem := fstest.MapFS{
		"songs/b.MML":      {Data: []byte("c")},
		"songs/a.mml":      {Data: []byte("d")},
		"songs/c.mid":      {Data: []byte("MThd")},
		"songs/readme.txt": {Data: []byte("notes")},
	}
	fsys := NewEmbedFS(mem, "songs")

	tests := []struct {
		name string
		exts []string
		want []string
	}{
		{"mml only", []string{".mml"}, []string{"a.mml", "b.MML"}},
		{"mml and mid", []string{".mml", ".MID"}, []string{"a.mml", "b.MML", "c.mid"}},
		{"no match", []string{".sf2"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindByExt(fsys, ".", tt.exts...)
			if err != nil {
				t.Fatalf("FindByExt failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("FindByExt = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FindByExt[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
