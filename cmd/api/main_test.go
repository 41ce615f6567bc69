package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open env file: %v", err)
	}
	t.Cleanup(func() { _ = file.Close() })
	return file
}

func TestParseEnvFile(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	t.Run("strips a byte order mark from the first line", func(t *testing.T) {
		file := writeEnvFile(t, "\xEF\xBB\xBFENV_TEST_BOM_KEY=from-file\n")
		t.Cleanup(func() { _ = os.Unsetenv("ENV_TEST_BOM_KEY") })

		if err := parseEnvFile(logger, file); err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := os.Getenv("ENV_TEST_BOM_KEY"); got != "from-file" {
			t.Fatalf("expected from-file, got %q", got)
		}
	})

	t.Run("skips comments, blanks and export prefixes, trims quotes", func(t *testing.T) {
		file := writeEnvFile(t, "# comment\n\nexport ENV_TEST_EXPORT_KEY=\"quoted value\"\nnot-a-pair\n")
		t.Cleanup(func() { _ = os.Unsetenv("ENV_TEST_EXPORT_KEY") })

		if err := parseEnvFile(logger, file); err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := os.Getenv("ENV_TEST_EXPORT_KEY"); got != "quoted value" {
			t.Fatalf("expected quoted value, got %q", got)
		}
	})

	t.Run("never overrides an existing variable", func(t *testing.T) {
		t.Setenv("ENV_TEST_EXISTING_KEY", "from-process")
		file := writeEnvFile(t, "ENV_TEST_EXISTING_KEY=from-file\n")

		if err := parseEnvFile(logger, file); err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := os.Getenv("ENV_TEST_EXISTING_KEY"); got != "from-process" {
			t.Fatalf("expected from-process, got %q", got)
		}
	})
}
