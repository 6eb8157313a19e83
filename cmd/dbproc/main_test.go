package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/electwix/dbproc/internal/cli"
	"github.com/electwix/dbproc/internal/pipeline"
)

func TestRunRender(t *testing.T) {
	configPath := prepareCmdFixtures(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run(context.Background(), []string{"--config", configPath, "render"}, stdout, stderr)
	if exitCode != cli.ExitSuccess {
		t.Fatalf("exit code = %d, want 0; stderr=%q", exitCode, stderr.String())
	}
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr output: %q", stderr.String())
	}

	out := stdout.String()
	if !strings.HasPrefix(out, "-- restock\n") {
		t.Fatalf("stdout %q missing procedure banner", out)
	}
	if !strings.Contains(out, "UPDATE stock_items SET `amount` = amount") {
		t.Fatalf("stdout %q missing resolved table", out)
	}
	if !strings.Contains(out, "WHERE `shelf_number` = shelf;") {
		t.Fatalf("stdout %q missing resolved column", out)
	}
}

func TestRunRenderToDirectory(t *testing.T) {
	configPath := prepareCmdFixtures(t)
	outDir := filepath.Join(filepath.Dir(configPath), "build")
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run(context.Background(), []string{"-c", configPath, "render", "--out", outDir}, stdout, stderr)
	if exitCode != cli.ExitSuccess {
		t.Fatalf("exit code = %d, want 0; stderr=%q", exitCode, stderr.String())
	}

	data, err := os.ReadFile(filepath.Join(outDir, "restock.sql"))
	if err != nil {
		t.Fatalf("read rendered file: %v", err)
	}
	if !strings.Contains(string(data), "stock_items") {
		t.Fatalf("rendered file %q missing table", data)
	}
}

func TestRunListProcedures(t *testing.T) {
	configPath := prepareCmdFixtures(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run(context.Background(), []string{"--config", configPath, "list"}, stdout, stderr)
	if exitCode != cli.ExitSuccess {
		t.Fatalf("exit code = %d, want 0; stderr=%q", exitCode, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "restock") {
		t.Fatalf("stdout %q missing procedure name", out)
	}
	if !strings.Contains(out, "(shelf, amount)") {
		t.Fatalf("stdout %q missing arguments", out)
	}
}

func TestRunMissingConfig(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	missing := filepath.Join(t.TempDir(), "dbproc.toml")
	exitCode := run(context.Background(), []string{"--config", missing, "list"}, stdout, stderr)
	if exitCode != cli.ExitCommandError {
		t.Fatalf("exit code = %d, want %d", exitCode, cli.ExitCommandError)
	}
	if !strings.HasPrefix(stderr.String(), "dbproc: ") {
		t.Fatalf("stderr %q missing program prefix", stderr.String())
	}
}

func TestRunInstallWithoutDSN(t *testing.T) {
	configPath := prepareCmdFixtures(t)
	t.Setenv("DBPROC_TEST_DSN", "")
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := execute(context.Background(), pipeline.Environment{Writer: &pipeline.MemoryWriter{}},
		[]string{"--config", configPath, "install"}, stdout, stderr)
	if exitCode != cli.ExitCommandError {
		t.Fatalf("exit code = %d, want %d", exitCode, cli.ExitCommandError)
	}
	if !strings.Contains(stderr.String(), pipeline.ErrNoDSN.Error()) {
		t.Fatalf("stderr %q does not mention the missing dsn", stderr.String())
	}
}

func TestRunUnknownFormat(t *testing.T) {
	configPath := prepareCmdFixtures(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run(context.Background(), []string{"--config", configPath, "--format", "xml", "list"}, stdout, stderr)
	if exitCode != cli.ExitCommandError {
		t.Fatalf("exit code = %d, want %d", exitCode, cli.ExitCommandError)
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected stdout output: %q", stdout.String())
	}
}

func prepareCmdFixtures(t *testing.T) string {
	t.Helper()
	src := filepath.Join("testdata")
	dst := t.TempDir()
	copyTree(t, dst, src)
	return filepath.Join(dst, "dbproc.toml")
}

func copyTree(t *testing.T, dst, src string) {
	t.Helper()
	entries, err := os.ReadDir(src)
	if err != nil {
		t.Fatalf("ReadDir %q: %v", src, err)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := os.MkdirAll(dstPath, 0o755); err != nil {
				t.Fatalf("MkdirAll %q: %v", dstPath, err)
			}
			copyTree(t, dstPath, srcPath)
			continue
		}
		copyFile(t, dstPath, srcPath)
	}
}

func copyFile(t *testing.T, dst, src string) {
	t.Helper()
	in, err := os.Open(src)
	if err != nil {
		t.Fatalf("open %q: %v", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("create %q: %v", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		t.Fatalf("copy %q -> %q: %v", src, dst, err)
	}
}
