package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/servermedic/medic/internal/errors"
)

func TestReadFileWithLimit(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name    string
		size    int64
		wantErr bool
	}{
		{"small file", 100, false},
		{"exact limit", MaxFileSize, false},
		{"too large", MaxFileSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tempDir, tt.name)
			f, err := os.Create(path)
			if err != nil {
				t.Fatal(err)
			}

			// Write dummy data
			if err := f.Truncate(tt.size); err != nil {
				t.Fatal(err)
			}
			f.Close()

			_, err = ReadFileWithLimit(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ReadFileWithLimit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrFileTooLarge) {
				t.Errorf("expected ErrFileTooLarge, got %v", err)
			}
		})
	}
}

func TestReadFileTail(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		maxBytes int64
		want     string
	}{
		{"smaller than limit", "line1\nline2\n", 1024, "line1\nline2\n"},
		{"exactly limit", "abcdef", 6, "abcdef"},
		{"larger than limit", "0123456789", 4, "6789"},
		{"empty file", "", 1024, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tempDir, strings.ReplaceAll(tt.name, " ", "-"))
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			got, err := ReadFileTail(path, tt.maxBytes)
			if err != nil {
				t.Fatalf("ReadFileTail() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ReadFileTail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadFileTail_Missing(t *testing.T) {
	_, err := ReadFileTail(filepath.Join(t.TempDir(), "absent.log"), 1024)
	if err == nil {
		t.Error("ReadFileTail() expected error for missing file")
	}
}
