package config

import (
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/isseis/go-elfprobe/internal/hostarch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		toml    string
		want    *Config
		wantErr error
	}{
		{
			name: "full config",
			toml: `
version = "1.0"

[emulation]
enabled = true
host_machines = ["EM_X86_64", "EM_386"]

[paths]
max_path_list_bytes = 65536
`,
			want: &Config{
				EmulationEnabled: true,
				HostMachines:     []elf.Machine{elf.EM_X86_64, elf.EM_386},
				MaxPathListBytes: 65536,
			},
		},
		{
			name: "empty config uses defaults",
			toml: "",
			want: &Config{HostMachines: hostarch.DefaultMachines()},
		},
		{
			name: "numeric machine",
			toml: `
[emulation]
enabled = true
host_machines = ["183"]
`,
			want: &Config{EmulationEnabled: true, HostMachines: []elf.Machine{elf.EM_AARCH64}},
		},
		{
			name:    "unknown machine",
			toml:    "[emulation]\nhost_machines = [\"EM_BOGUS\"]\n",
			wantErr: ErrInvalidValue,
		},
		{
			name:    "negative budget",
			toml:    "[paths]\nmax_path_list_bytes = -1\n",
			wantErr: ErrInvalidValue,
		},
		{
			name:    "unknown field",
			toml:    "[emulation]\nenabled = true\nqemu = \"/usr/bin/qemu-x86_64\"\n",
			wantErr: ErrInvalidValue,
		},
		{
			name:    "unsupported version",
			toml:    "version = \"2.0\"\n",
			wantErr: ErrUnsupportedVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.toml))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte("[emulation\nenabled = true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elfprobe.toml")
	require.NoError(t, os.WriteFile(path, []byte("[emulation]\nenabled = true\nhost_machines = [\"x86_64\"]\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.EmulationEnabled)
	assert.Equal(t, []elf.Machine{elf.EM_X86_64}, cfg.HostMachines)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfigPath)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.EmulationEnabled)
	assert.Equal(t, hostarch.DefaultMachines(), cfg.HostMachines)
	assert.Zero(t, cfg.MaxPathListBytes)
}
