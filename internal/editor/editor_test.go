package editor

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDetect_EnvEditor(t *testing.T) {
	t.Setenv("EDITOR", "nvim")
	t.Setenv("VISUAL", "code")

	if got := Detect(); got != "nvim" {
		t.Errorf("Detect() = %q, want %q", got, "nvim")
	}
}

func TestDetect_EnvVisual(t *testing.T) {
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "code")

	if got := Detect(); got != "code" {
		t.Errorf("Detect() = %q, want %q", got, "code")
	}
}

func TestDetect_Fallback(t *testing.T) {
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")

	got := Detect()
	if _, err := exec.LookPath("nano"); err == nil {
		if got != "nano" {
			t.Errorf("Detect() = %q, want %q (nano available)", got, "nano")
		}
	} else if got != "vi" {
		t.Errorf("Detect() = %q, want %q (nano not available)", got, "vi")
	}
}

func TestDetect_EmptyEnvTreatedAsUnset(t *testing.T) {
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "vscode")

	if got := Detect(); got != "vscode" {
		t.Errorf("Detect() = %q, want %q (empty EDITOR should fall through)", got, "vscode")
	}
}

func TestOpen_RunsEditorOnPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the editor")
	}

	tmpDir := t.TempDir()
	mockEditor := filepath.Join(tmpDir, "mock-editor.sh")
	outputFile := filepath.Join(tmpDir, "output.txt")

	script := "#!/bin/sh\necho \"$@\" > " + outputFile + "\n"
	if err := os.WriteFile(mockEditor, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EDITOR", mockEditor)

	targetFile := filepath.Join(tmpDir, "target.txt")
	if err := os.WriteFile(targetFile, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Open(targetFile); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), targetFile) {
		t.Errorf("editor received %q, want it to contain %q", string(got), targetFile)
	}
}

func TestOpen_MissingEditorBinary(t *testing.T) {
	t.Setenv("EDITOR", "non-existent-binary-12345")
	t.Setenv("VISUAL", "")

	if err := Open("test.txt"); err == nil {
		t.Error("expected error for non-existent editor, got nil")
	}
}
