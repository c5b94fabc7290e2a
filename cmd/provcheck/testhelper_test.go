package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// executeCommand executes a Cobra command with the given args and returns output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err = root.Execute()
	return buf.String(), err
}

// testContext holds test resources.
type testContext struct {
	t       *testing.T
	tempDir string
}

// newTestContext creates a test context with a temp directory, clean
// environment and default flag values.
func newTestContext(t *testing.T) *testContext {
	t.Helper()
	t.Setenv("PROVCHECK_CONFIG", "")
	t.Setenv("PROVCHECK_AUDIT_LOG", "")
	t.Setenv("PROVCHECK_PORT", "")
	resetFlags()
	return &testContext{t: t, tempDir: t.TempDir()}
}

// path returns a path within the temp directory.
func (tc *testContext) path(name string) string {
	return filepath.Join(tc.tempDir, name)
}

// writeFile writes content to a file in the temp directory.
func (tc *testContext) writeFile(name, content string) string {
	tc.t.Helper()
	path := tc.path(name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		tc.t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// resetFlags restores every command flag variable to its default.
func resetFlags() {
	configPath = ""
	auditLogPath = ""
	hsmConfigPath = ""
	verbose = false

	runProviderOrder = nil
	runCases = nil
	runFormat = ""
	runOut = ""
	runSignKey = ""

	providersOrder = nil
	resolveProvider = ""
	resolveOrder = nil

	reportPubPath = ""
	reportKeyPath = ""
	reportShowFormat = "text"

	auditTailNum = 10
	auditShowJSON = false

	hsmLib = ""

	servePort = 0
	serveHost = ""
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
}

func assertContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Errorf("output missing %q:\n%s", want, output)
	}
}
