package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tailored-agentic-units/spicy/workspace"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWorkspace_Unset(t *testing.T) {
	ws := workspace.New("")

	if _, err := ws.List(); !errors.Is(err, workspace.ErrNoWorkingDirectory) {
		t.Errorf("List() error = %v, want ErrNoWorkingDirectory", err)
	}
	if _, err := ws.Read("amp.asc"); !errors.Is(err, workspace.ErrNoWorkingDirectory) {
		t.Errorf("Read() error = %v, want ErrNoWorkingDirectory", err)
	}
}

func TestWorkspace_SetDirectory(t *testing.T) {
	ws := workspace.New("")
	dir := t.TempDir()

	if err := ws.SetDirectory(dir); err != nil {
		t.Fatalf("SetDirectory() error = %v", err)
	}
	got, err := ws.Directory()
	if err != nil || got != dir {
		t.Errorf("Directory() = %q, %v; want %q", got, err, dir)
	}

	if err := ws.SetDirectory(filepath.Join(dir, "missing")); err == nil {
		t.Error("SetDirectory() on missing dir should fail")
	}
	writeFile(t, dir, "plain.txt", nil)
	if err := ws.SetDirectory(filepath.Join(dir, "plain.txt")); err == nil {
		t.Error("SetDirectory() on a file should fail")
	}
}

func TestWorkspace_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zeta.asc", nil)
	writeFile(t, dir, "amp.asc", nil)
	writeFile(t, dir, "filters/lowpass.asc", nil)
	writeFile(t, dir, "filters/notes.txt", nil)
	writeFile(t, dir, "amp.asc.bak", nil)

	files, err := workspace.New(dir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"amp.asc", "filters/lowpass.asc", "zeta.asc"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("List() = %v, want %v", files, want)
	}
}

func TestWorkspace_List_Empty(t *testing.T) {
	files, err := workspace.New(t.TempDir()).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", files)
	}
}

func TestWorkspace_Read(t *testing.T) {
	dir := t.TempDir()
	ws := workspace.New(dir)

	t.Run("utf8", func(t *testing.T) {
		writeFile(t, dir, "utf8.asc", []byte("Version 4\nSYMATTR Value 10kΩ\n"))
		got, err := ws.Read("utf8.asc")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got != "Version 4\nSYMATTR Value 10kΩ\n" {
			t.Errorf("Read() = %q", got)
		}
	})

	t.Run("utf16le with bom", func(t *testing.T) {
		data := []byte{0xFF, 0xFE}
		for _, r := range "Version 4\nΩ" {
			data = append(data, byte(r), byte(r>>8))
		}
		writeFile(t, dir, "utf16.asc", data)

		got, err := ws.Read("utf16.asc")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got != "Version 4\nΩ" {
			t.Errorf("Read() = %q, want %q", got, "Version 4\nΩ")
		}
	})

	t.Run("invalid bytes are replaced", func(t *testing.T) {
		writeFile(t, dir, "latin1.asc", []byte{'1', '0', 0xB5, 'F'})
		got, err := ws.Read("latin1.asc")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got != "10�F" {
			t.Errorf("Read() = %q", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := ws.Read("missing.asc"); err == nil {
			t.Error("Read() of missing file should fail")
		}
	})

	t.Run("escaping path", func(t *testing.T) {
		if _, err := ws.Read("../secret.asc"); !errors.Is(err, workspace.ErrOutsideWorkspace) {
			t.Errorf("Read() error = %v, want ErrOutsideWorkspace", err)
		}
	})
}

func TestWorkspace_Write(t *testing.T) {
	dir := t.TempDir()
	ws := workspace.New(dir)
	writeFile(t, dir, "amp.asc", []byte("old\n"))

	if err := ws.Write("amp.asc", "new\n"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, _ := ws.Read("amp.asc")
	if got != "new\n" {
		t.Errorf("content = %q, want %q", got, "new\n")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", nil},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank lines kept", "a\n\nb", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workspace.SplitLines(tt.content); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLines(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestNumberedLines(t *testing.T) {
	got := workspace.NumberedLines("Version 4\nSHEET 1 880 680\n")
	want := "1| Version 4\n2| SHEET 1 880 680"
	if got != want {
		t.Errorf("NumberedLines() = %q, want %q", got, want)
	}
}
