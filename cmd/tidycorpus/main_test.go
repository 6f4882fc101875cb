package main

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildBinary builds the CLI once per test binary invocation.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "tidycorpus")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build CLI: %v\n%s", err, out)
	}
	return binaryPath
}

// runCLI runs the CLI binary and returns stdout, stderr, and exit code
func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmd := exec.Command(buildBinary(t), args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

func TestCLI_Help(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "--help")

	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}

	for _, command := range []string{"tidycorpus", "validate", "serve", "sample", "filters"} {
		if !strings.Contains(stdout, command) {
			t.Errorf("expected help to contain %q", command)
		}
	}
}

func TestCLI_ValidateValidJSON(t *testing.T) {
	path := writeFixture(t, "config.json", `{"dataRoot": "data/train-parts", "sampleSize": 20}`)

	stdout, stderr, exitCode := runCLI(t, "validate", path)

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	if !strings.Contains(stdout, "valid") {
		t.Errorf("expected output to contain 'valid', got: %s", stdout)
	}
}

func TestCLI_ValidateValidYAML(t *testing.T) {
	path := writeFixture(t, "config.yaml", "dataRoot: data/train-parts\nsampleSize: 20\n")

	stdout, stderr, exitCode := runCLI(t, "validate", path)

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	if !strings.Contains(stdout, "yaml") {
		t.Errorf("expected output to mention 'yaml' format, got: %s", stdout)
	}
}

func TestCLI_ValidateInvalidJSON(t *testing.T) {
	path := writeFixture(t, "broken.json", `{"dataRoot": `)

	_, stderr, exitCode := runCLI(t, "validate", path)

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d (parse error), got %d", ExitParseError, exitCode)
	}
	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to contain 'Parse errors', got: %s", stderr)
	}
}

func TestCLI_ValidateSchemaViolation(t *testing.T) {
	path := writeFixture(t, "config.json", `{"dataRooot": "typo"}`)

	_, stderr, exitCode := runCLI(t, "validate", path)

	if exitCode != ExitValidationError {
		t.Errorf("expected exit code %d (validation error), got %d", ExitValidationError, exitCode)
	}
	if !strings.Contains(stderr, "Validation errors") {
		t.Errorf("expected stderr to contain 'Validation errors', got: %s", stderr)
	}
}

func TestCLI_ValidateNonExistent(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate", "nonexistent.json")

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d (parse error), got %d", ExitParseError, exitCode)
	}
	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to contain parse error for non-existent file, got: %s", stderr)
	}
}

func TestCLI_ValidateQuiet(t *testing.T) {
	path := writeFixture(t, "config.json", `{"dataRoot": "data"}`)

	stdout, _, exitCode := runCLI(t, "validate", "--quiet", path)

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d", ExitSuccess, exitCode)
	}
	if strings.Contains(stdout, "Validating") {
		t.Errorf("expected quiet mode to suppress 'Validating' message, got: %s", stdout)
	}
}

func TestCLI_FiltersListsBuiltins(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "filters")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	for _, name := range []string{"remove-empty-lines", "clean-parallel", "fix-elitr-eca"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("expected filter listing to contain %q, got: %s", name, stdout)
		}
	}
}

func TestCLI_SamplePrintsRecords(t *testing.T) {
	dataRoot := t.TempDir()
	cacheDir := t.TempDir()
	writeColumnFixture(t, filepath.Join(dataRoot, "toy.en.gz"), []string{"a", "b", "c"})
	writeColumnFixture(t, filepath.Join(dataRoot, "toy.fr.gz"), []string{"x", "y", "z"})

	configPath := writeFixture(t, "config.json", fmt.Sprintf(
		`{"dataRoot": %q, "cacheDir": %q, "sampleSize": 10}`, dataRoot, cacheDir))

	stdout, stderr, exitCode := runCLI(t, "--quiet", "sample", configPath, "toy")

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 record lines, got %d: %q", len(lines), stdout)
	}
	var record map[string]string
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("first line is not a JSON record: %v", err)
	}
	if record["en"] != "a" || record["fr"] != "x" {
		t.Errorf("unexpected first record: %v", record)
	}
}

func TestCLI_SampleMissingDataset(t *testing.T) {
	configPath := writeFixture(t, "config.json", fmt.Sprintf(
		`{"dataRoot": %q}`, t.TempDir()))

	_, stderr, exitCode := runCLI(t, "sample", configPath, "absent")

	if exitCode != ExitValidationError {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitValidationError, exitCode, stderr)
	}
	if !strings.Contains(stderr, "absent") {
		t.Errorf("expected stderr to name the dataset, got: %s", stderr)
	}
}

func TestCLI_Version(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "version")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	for _, field := range []string{"Version:", "Commit:", "Build Date:"} {
		if !strings.Contains(stdout, field) {
			t.Errorf("expected output to contain %q, got: %s", field, stdout)
		}
	}
}

func TestCLI_ValidateMissingArg(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate")

	if exitCode == ExitSuccess {
		t.Error("expected non-zero exit code for missing argument")
	}
	if !strings.Contains(stderr, "accepts 1 arg") {
		t.Errorf("expected error about missing argument, got: %s", stderr)
	}
}

func writeColumnFixture(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	for _, line := range lines {
		if _, err := gz.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing %s: %v", path, err)
	}
}
