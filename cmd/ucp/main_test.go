package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeSampleDoc(t *testing.T, dir string) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "..", "samples", "notebook.json"))
	if err != nil {
		t.Fatalf("reading sample document: %v", err)
	}
	path := filepath.Join(dir, "notebook.json")
	if err := os.WriteFile(path, src, 0o644); err != nil {
		t.Fatalf("writing copy: %v", err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd.SetArgs(args)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	docPath, logLevel, logFile, logStdout = "", "", "", false
	return out.String(), err
}

func TestFingerprintCommandSucceedsOnSampleDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleDoc(t, dir)

	if _, err := runCmd(t, "fingerprint", "--doc", path); err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
}

func TestValidateCommandAcceptsWellFormedDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleDoc(t, dir)

	if _, err := runCmd(t, "validate", "--doc", path); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestExecCommandRunsScriptAndPersistsResult(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleDoc(t, dir)
	scriptPath := filepath.Join("..", "..", "samples", "tour.ucl")
	outPath := filepath.Join(dir, "out.json")

	if _, err := runCmd(t, "exec", "--doc", path, "--script", scriptPath, "--out", outPath, "--log-file", filepath.Join(dir, "ucp.log")); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected output document to be written: %v", err)
	}
}

func TestSessionCommandDispatchesFindQuery(t *testing.T) {
	dir := t.TempDir()
	path := writeSampleDoc(t, dir)

	out, err := runCmd(t, "session", "--doc", path, "--command", "FIND TAGS=revenue", "--log-file", filepath.Join(dir, "ucp.log"))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if out == "" {
		t.Fatal("expected dispatch result to be printed")
	}
}

func TestRequireDocPathFailsWhenUnset(t *testing.T) {
	docPath = ""
	if _, err := requireDocPath(); err == nil {
		t.Fatal("expected an error when --doc is unset")
	}
}
