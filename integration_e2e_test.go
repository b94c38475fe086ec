//go:build integration
// +build integration

// Package main_test contains end-to-end integration tests for the
// portforge CLI's maintenance directives (init, status, reset-db).
//
// Limitations:
//   - Does not test actual port builds (requires root + a ports tree);
//     that is covered by sandbox/graph/scheduler's own integration tests.
//   - Requires a `portforge` binary built beforehand: go build -o portforge .
//
// Run with: go test -tags=integration -v .
package main_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"portforge/builddb"
)

// ==================== Test Helper Functions ====================

// execPortforge executes the portforge CLI with given arguments.
func execPortforge(t *testing.T, args []string, configDir string) (stdout string, err error) {
	t.Helper()

	if configDir != "" {
		args = append([]string{"--config-dir", configDir}, args...)
	}

	cmd := exec.Command("./portforge", args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// setupTestEnvironment creates a temporary directory with minimal INI config.
func setupTestEnvironment(t *testing.T) (tmpDir, configDir string) {
	t.Helper()

	tmpDir = t.TempDir()
	configDir = tmpDir
	buildBase := filepath.Join(tmpDir, "build")
	portsDir := filepath.Join(tmpDir, "dports")

	configPath := filepath.Join(configDir, "portforge.ini")
	configContent := fmt.Sprintf(`[Global Configuration]
Directory_buildbase=%s
Directory_portsdir=%s
Directory_repository=%s/packages
Directory_logs=%s/logs
Directory_distfiles=%s/distfiles
Directory_packages=%s/packages
Directory_options=%s/options
Number_of_builders=1
`, buildBase, portsDir, buildBase, buildBase, buildBase, buildBase, buildBase)

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	return tmpDir, configDir
}

// assertDatabaseExists verifies database file exists and can be opened
func assertDatabaseExists(t *testing.T, dbPath string) *builddb.DB {
	t.Helper()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database does not exist: %s", dbPath)
	}

	db, err := builddb.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database %s: %v", dbPath, err)
	}

	return db
}

// assertDirectoryExists verifies directory was created
func assertDirectoryExists(t *testing.T, path string) {
	t.Helper()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Fatalf("Directory does not exist: %s", path)
	}
	if err != nil {
		t.Fatalf("Failed to stat directory %s: %v", path, err)
	}
	if !info.IsDir() {
		t.Fatalf("Path exists but is not a directory: %s", path)
	}
}

// ==================== E2E Test Cases ====================

func TestE2E_InitCommand(t *testing.T) {
	tmpDir, configDir := setupTestEnvironment(t)
	buildBase := filepath.Join(tmpDir, "build")

	stdout, err := execPortforge(t, []string{"init"}, configDir)
	if err != nil {
		t.Fatalf("portforge init failed: %v\nOutput: %s", err, stdout)
	}

	if !strings.Contains(stdout, "Initialization complete") {
		t.Error("Expected completion message in output")
	}

	assertDirectoryExists(t, buildBase)
	assertDirectoryExists(t, filepath.Join(buildBase, "logs"))
	assertDirectoryExists(t, filepath.Join(buildBase, "Template"))

	dbPath := filepath.Join(buildBase, "portforge.db")
	db := assertDatabaseExists(t, dbPath)
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("Failed to get database stats: %v", err)
	}
	if stats.TotalBuilds != 0 {
		t.Errorf("Expected 0 builds in fresh database, got %d", stats.TotalBuilds)
	}

	t.Log("init creates the build environment")
}

func TestE2E_InitIdempotent(t *testing.T) {
	tmpDir, configDir := setupTestEnvironment(t)
	buildBase := filepath.Join(tmpDir, "build")

	if _, err := execPortforge(t, []string{"init"}, configDir); err != nil {
		t.Fatalf("First init failed: %v", err)
	}

	stdout, err := execPortforge(t, []string{"init"}, configDir)
	if err != nil {
		t.Fatalf("Second init failed: %v\nOutput: %s", err, stdout)
	}
	if !strings.Contains(stdout, "Initialization complete") {
		t.Error("Expected completion message on second init")
	}

	dbPath := filepath.Join(buildBase, "portforge.db")
	db := assertDatabaseExists(t, dbPath)
	defer db.Close()

	t.Log("init is idempotent")
}

func TestE2E_StatusCommand(t *testing.T) {
	tmpDir, configDir := setupTestEnvironment(t)
	buildBase := filepath.Join(tmpDir, "build")

	if _, err := execPortforge(t, []string{"init"}, configDir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	dbPath := filepath.Join(buildBase, "portforge.db")
	db, err := builddb.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	uuid1 := uuid.New().String()
	rec1 := &builddb.BuildRecord{
		UUID:      uuid1,
		PortDir:   "editors/vim",
		Version:   "1.2.3",
		Status:    "success",
		StartTime: time.Now().Add(-10 * time.Minute),
		EndTime:   time.Now(),
	}
	if err := db.SaveRecord(rec1); err != nil {
		db.Close()
		t.Fatalf("Failed to save record 1: %v", err)
	}
	if err := db.UpdatePackageIndex("editors/vim", "1.2.3", uuid1); err != nil {
		db.Close()
		t.Fatalf("Failed to update package index 1: %v", err)
	}

	uuid2 := uuid.New().String()
	rec2 := &builddb.BuildRecord{
		UUID:      uuid2,
		PortDir:   "shells/bash",
		Version:   "5.1.0",
		Status:    "failed",
		StartTime: time.Now().Add(-5 * time.Minute),
		EndTime:   time.Now(),
	}
	if err := db.SaveRecord(rec2); err != nil {
		db.Close()
		t.Fatalf("Failed to save record 2: %v", err)
	}
	if err := db.UpdatePackageIndex("shells/bash", "5.1.0", uuid2); err != nil {
		db.Close()
		t.Fatalf("Failed to update package index 2: %v", err)
	}
	db.Close()

	stdout, err := execPortforge(t, []string{"status"}, configDir)
	if err != nil {
		t.Fatalf("Status command failed: %v\nOutput: %s", err, stdout)
	}
	if !strings.Contains(stdout, "builds: 2") {
		t.Errorf("Expected total builds count in output, got: %s", stdout)
	}

	stdout, err = execPortforge(t, []string{"status", "editors/vim"}, configDir)
	if err != nil {
		t.Fatalf("Port status failed: %v\nOutput: %s", err, stdout)
	}
	if !strings.Contains(stdout, "editors/vim") {
		t.Error("Expected port directory in output")
	}
	if !strings.Contains(stdout, "1.2.3") {
		t.Error("Expected version in output")
	}

	t.Log("status displays database and per-port information")
}

func TestE2E_ResetDBCommand(t *testing.T) {
	tmpDir, configDir := setupTestEnvironment(t)
	buildBase := filepath.Join(tmpDir, "build")

	if _, err := execPortforge(t, []string{"init"}, configDir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	dbPath := filepath.Join(buildBase, "portforge.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("Database should exist before reset")
	}

	stdout, err := execPortforge(t, []string{"reset-db", "--yes"}, configDir)
	if err != nil {
		t.Fatalf("Reset-db failed: %v\nOutput: %s", err, stdout)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("Database should be removed after reset")
	}

	if _, err := execPortforge(t, []string{"init"}, configDir); err != nil {
		t.Fatalf("Init after reset failed: %v", err)
	}

	t.Log("reset-db removes the build database")
}
