package main

import (
	"bytes"
	"debug/elf"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/isseis/go-elfprobe/internal/elfprobe"
	elfprobetesting "github.com/isseis/go-elfprobe/internal/elfprobe/testing"
	"github.com/isseis/go-elfprobe/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "elfprobe.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_TextOutput(t *testing.T) {
	dir := t.TempDir()
	path := elfprobetesting.DynamicBinary(elf.ELFCLASS64, elf.ELFDATA2LSB, elf.EM_X86_64,
		[]string{"/lib:/usr/lib"}, nil).WriteFile(t, dir, "app")
	cfg := writeConfig(t, "[emulation]\nenabled = true\nhost_machines = [\"EM_X86_64\"]\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-config", cfg, "-log-format", "json", path}, &stdout, &stderr, "test-run-id")
	require.NoError(t, err, stderr.String())

	want := path + `: class=ELFCLASS64 machine=EM_X86_64 host=true rpath="/lib:/usr/lib" runpath=""` + "\n"
	if _, forced := os.LookupEnv(elfprobe.ForceForeignEnvVar); forced {
		want = strings.Replace(want, "host=true", "host=false", 1)
	}
	assert.Equal(t, want, stdout.String())
}

func TestRun_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	a := elfprobetesting.DynamicBinary(elf.ELFCLASS32, elf.ELFDATA2MSB, elf.EM_MIPS,
		nil, []string{"/a", "/b"}).WriteFile(t, dir, "a")
	b := elfprobetesting.NewBuilder(elf.ELFCLASS64, elf.ELFDATA2LSB, elf.EM_RISCV).WriteFile(t, dir, "b")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-json", "-log-format", "json", a, b}, &stdout, &stderr, "test-run-id")
	require.NoError(t, err, stderr.String())

	decoder := json.NewDecoder(&stdout)
	var first, second elfprobe.Report
	require.NoError(t, decoder.Decode(&first))
	require.NoError(t, decoder.Decode(&second))

	assert.Equal(t, a, first.Path)
	assert.Equal(t, "ELFCLASS32", first.Class)
	assert.Equal(t, "/a:/b", first.RunPath)
	assert.Equal(t, []string{"/a", "/b"}, first.RunPaths)
	assert.False(t, first.Host, "emulation is disabled by default")

	assert.Equal(t, b, second.Path)
	assert.Equal(t, "EM_RISCV", second.Machine)
	assert.Empty(t, second.RPath)
}

func TestRun_EmulationFlagOverridesConfig(t *testing.T) {
	var machine elf.Machine
	switch runtime.GOARCH {
	case "amd64":
		machine = elf.EM_X86_64
	case "arm64":
		machine = elf.EM_AARCH64
	default:
		t.Skipf("no default host machine table for %s", runtime.GOARCH)
	}
	if _, forced := os.LookupEnv(elfprobe.ForceForeignEnvVar); forced {
		t.Skip("foreign binaries are forced by the environment")
	}
	path := elfprobetesting.NewBuilder(elf.ELFCLASS64, elf.ELFDATA2LSB, machine).WriteFile(t, t.TempDir(), "native")
	cfg := writeConfig(t, "[emulation]\nenabled = false\n")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-config", cfg, "-emulation", "-log-format", "json", path}, &stdout, &stderr, "id"))
	assert.Contains(t, stdout.String(), "host=true")

	stdout.Reset()
	require.NoError(t, run([]string{"-config", cfg, "-log-format", "json", path}, &stdout, &stderr, "id"))
	assert.Contains(t, stdout.String(), "host=false")
}

func TestRun_InspectionFailures(t *testing.T) {
	dir := t.TempDir()
	good := elfprobetesting.NewBuilder(elf.ELFCLASS64, elf.ELFDATA2LSB, elf.EM_X86_64).WriteFile(t, dir, "good")
	text := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(text, []byte("#!/bin/sh\necho hi\n"), 0o600))

	var stdout, stderr bytes.Buffer
	err := run([]string{"-log-format", "json", text, good}, &stdout, &stderr, "id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInspectionFailed)

	assert.Contains(t, stdout.String(), good+": ")
	assert.Contains(t, stderr.String(), text+": malformed_binary: malformed ELF binary")
	assert.Contains(t, stderr.String(), `"kind":"malformed_binary"`)
}

func TestRun_PreExecutionErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantType logging.ErrorType
		wantErr  error
	}{
		{name: "no binaries", args: []string{}, wantType: logging.ErrorTypeInvalidArguments, wantErr: ErrNoBinaries},
		{name: "unknown flag", args: []string{"-bogus", "/bin/ls"}, wantType: logging.ErrorTypeInvalidArguments},
		{name: "bad log level", args: []string{"-log-level", "loud", "/bin/ls"}, wantType: logging.ErrorTypeLoggerSetup},
		{name: "missing config", args: []string{"-config", "/nonexistent/elfprobe.toml", "-log-format", "json", "/bin/ls"}, wantType: logging.ErrorTypeConfigParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr, "run-id")
			require.Error(t, err)

			var preExecErr *logging.PreExecutionError
			require.True(t, errors.As(err, &preExecErr))
			assert.Equal(t, tt.wantType, preExecErr.Type)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_RunIDFlag(t *testing.T) {
	path := elfprobetesting.NewBuilder(elf.ELFCLASS64, elf.ELFDATA2LSB, elf.EM_X86_64).WriteFile(t, t.TempDir(), "bin")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-run-id", "custom-id", "-log-level", "debug", "-log-format", "json", path}, &stdout, &stderr, "generated"))
	assert.Contains(t, stderr.String(), `"run_id":"custom-id"`)
	assert.NotContains(t, stderr.String(), "generated")
}
