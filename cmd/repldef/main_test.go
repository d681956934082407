package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const binName = "repldef_test_bin"

func TestMain(m *testing.M) {
	build := exec.Command("go", "build", "-o", binName, ".")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		os.Exit(1)
	}
	status := m.Run()
	os.Remove(binName)
	os.Exit(status)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	bin, err := filepath.Abs(binName)
	if err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(bin, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestDiffAgainstEmptySQLiteDatabaseEmitsCreateTable(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "repldef_test.db")

	configPath := writeFile(t, dir, "peer.yaml", `
name: local
local:
  engine: sqlite3
  dsn: `+dbPath+`
batchSize: 100
maxPasses: 3
`)
	schemaPath := writeFile(t, dir, "schema.json", `{
  "Tables": [
    {
      "Name": "users",
      "Columns": [
        {"Name": "id", "Type": {"Kind": 0, "Width": 64}, "Identity": true},
        {"Name": "email", "Type": {"Kind": 7, "N": 255}}
      ],
      "PrimaryKey": {"Columns": ["id"]}
    }
  ]
}`)

	out, err := run(t, "diff", "--config", configPath, "--desired", schemaPath)
	if err != nil {
		t.Fatalf("diff failed: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "CREATE TABLE") {
		t.Errorf("expected output to contain a CREATE TABLE statement, got: %s", out)
	}
	if !strings.Contains(out, "users") {
		t.Errorf("expected output to mention table users, got: %s", out)
	}
}

func TestUnknownSubcommandExitsNonZero(t *testing.T) {
	_, err := run(t, "bogus")
	if err == nil {
		t.Error("unknown subcommand must exit non-zero")
	}
}

func TestHelpExitsZero(t *testing.T) {
	_, err := run(t, "--help")
	if err != nil {
		t.Errorf("--help should exit zero, got: %v", err)
	}
}

func TestMissingRequiredFlagExitsNonZero(t *testing.T) {
	_, err := run(t, "diff", "--config", "missing.yaml")
	if err == nil {
		t.Error("missing required --desired flag must exit non-zero")
	}
}
