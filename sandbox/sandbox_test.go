package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"portforge/config"
	"portforge/environment"
	"portforge/graph"
	"portforge/scheduler"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		BuildBase:      dir,
		RepositoryPath: filepath.Join(dir, "packages"),
		LogsPath:       dir,
	}
}

func testTask() scheduler.BuildTask {
	return scheduler.BuildTask{
		Port:        graph.PortId{Origin: "devel/cmake"},
		Version:     "3.28.0",
		Fingerprint: [32]byte{0xAB, 0xCD},
		PkgFile:     "cmake-3.28.0.pkg",
	}
}

// writeFakeArtifact drops a file where runPhase's `make package` would
// have left one, at <basePath>/packages/All/<PkgFile>.
func writeFakeArtifact(t *testing.T, basePath, pkgFile string) {
	t.Helper()
	dir := filepath.Join(basePath, "packages", "All")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pkgFile), []byte("fake package contents"), 0644))
}

func TestBuilder_Build_Success(t *testing.T) {
	cfg := testConfig(t)
	mock := environment.NewMockEnvironment().(*environment.MockEnvironment)
	mock.BasePath = t.TempDir()

	task := testTask()
	writeFakeArtifact(t, mock.BasePath, task.PkgFile)

	b := New(0, cfg, mock)
	phases := make(chan string, 32)
	result := b.Build(context.Background(), phases, task)

	require.True(t, result.Success, "FailureReason: %s (phase %s)", result.FailureReason, result.Phase)
	require.Equal(t, task.Port, result.Port)
	require.True(t, mock.WasSetupCalled())

	destName := graph.PackageFileName(task.Port, task.Version, task.Fingerprint)
	dest := filepath.Join(cfg.RepositoryPath, "All", destName)
	_, err := os.Stat(dest)
	require.NoError(t, err, "captured artifact should exist at %s", dest)
}

func TestBuilder_Build_PrepareOnlyOncePerSlot(t *testing.T) {
	cfg := testConfig(t)
	mock := environment.NewMockEnvironment().(*environment.MockEnvironment)
	mock.BasePath = t.TempDir()

	task := testTask()
	writeFakeArtifact(t, mock.BasePath, task.PkgFile)

	b := New(0, cfg, mock)
	phases := make(chan string, 32)

	result1 := b.Build(context.Background(), phases, task)
	require.True(t, result1.Success)
	require.Equal(t, 1, func() int {
		if mock.WasSetupCalled() {
			return 1
		}
		return 0
	}())

	// Setup should not be invoked a second time: sandbox reuses the
	// mount skeleton across tasks within a slot's lifetime.
	mock.SetupCalled = false
	writeFakeArtifact(t, mock.BasePath, task.PkgFile)
	result2 := b.Build(context.Background(), phases, task)
	require.True(t, result2.Success)
	require.False(t, mock.WasSetupCalled(), "Setup should not run again for a second task on the same slot")
}

func TestBuilder_Build_PhaseFailureStopsEarly(t *testing.T) {
	cfg := testConfig(t)
	mock := environment.NewMockEnvironment().(*environment.MockEnvironment)
	mock.BasePath = t.TempDir()
	mock.ExecuteResult = &environment.ExecResult{ExitCode: 1}

	task := testTask()
	b := New(0, cfg, mock)
	phases := make(chan string, 32)
	result := b.Build(context.Background(), phases, task)

	require.False(t, result.Success)
	require.Equal(t, "check-sanity", result.Phase)
}

func TestBuilder_Build_MissingArtifactFails(t *testing.T) {
	cfg := testConfig(t)
	mock := environment.NewMockEnvironment().(*environment.MockEnvironment)
	mock.BasePath = t.TempDir()

	task := testTask() // no fake artifact written
	b := New(0, cfg, mock)
	phases := make(chan string, 32)
	result := b.Build(context.Background(), phases, task)

	require.False(t, result.Success)
	require.Equal(t, "package", result.Phase)
}

func TestBuilder_Close_TeardownOnlyIfPrepared(t *testing.T) {
	cfg := testConfig(t)
	mock := environment.NewMockEnvironment().(*environment.MockEnvironment)

	b := New(0, cfg, mock)
	require.NoError(t, b.Close())
	require.False(t, mock.WasCleanupCalled(), "Close before any Build should not tear down")

	mock.BasePath = t.TempDir()
	task := testTask()
	writeFakeArtifact(t, mock.BasePath, task.PkgFile)
	phases := make(chan string, 32)
	b.Build(context.Background(), phases, task)

	require.NoError(t, b.Close())
	require.True(t, mock.WasCleanupCalled())
}

func TestBuilder_DepPackagesStagedBeforePhases(t *testing.T) {
	cfg := testConfig(t)
	mock := environment.NewMockEnvironment().(*environment.MockEnvironment)
	mock.BasePath = t.TempDir()

	task := testTask()
	task.DepPackages = []string{"devel_zlib-1.3-abcdef.pkg"}
	writeFakeArtifact(t, mock.BasePath, task.PkgFile)

	b := New(0, cfg, mock)
	phases := make(chan string, 32)
	result := b.Build(context.Background(), phases, task)
	require.True(t, result.Success)

	var sawPkgAdd bool
	for i := 0; i < mock.GetExecuteCallCount(); i++ {
		call := mock.GetExecuteCall(i)
		if call.Command == "/usr/sbin/pkg" && len(call.Args) >= 2 && call.Args[0] == "add" {
			sawPkgAdd = true
			require.Contains(t, call.Args[1], "devel_zlib-1.3-abcdef.pkg")
		}
	}
	require.True(t, sawPkgAdd, "expected a pkg add call for the dependency package")
}
