// Package hostarch describes which ELF machine types the running host can
// execute without an emulator.
package hostarch

import (
	"debug/elf"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// ErrUnknownMachine is returned when a machine name cannot be resolved.
var ErrUnknownMachine = errors.New("unknown ELF machine")

// machinesByGOARCH lists the machine types native to each GOARCH. Some hosts
// also run their historical 32-bit counterpart directly.
var machinesByGOARCH = map[string][]elf.Machine{
	"amd64":    {elf.EM_X86_64, elf.EM_386, elf.EM_486},
	"386":      {elf.EM_386, elf.EM_486},
	"arm64":    {elf.EM_AARCH64},
	"arm":      {elf.EM_ARM},
	"riscv64":  {elf.EM_RISCV},
	"ppc64":    {elf.EM_PPC64},
	"ppc64le":  {elf.EM_PPC64},
	"s390x":    {elf.EM_S390},
	"loong64":  {elf.EM_LOONGARCH},
	"mips":     {elf.EM_MIPS},
	"mipsle":   {elf.EM_MIPS},
	"mips64":   {elf.EM_MIPS},
	"mips64le": {elf.EM_MIPS},
}

// DefaultMachines returns the host machine table for the running GOARCH.
// An unknown GOARCH yields an empty table, so every binary is foreign.
func DefaultMachines() []elf.Machine {
	return MachinesFor(runtime.GOARCH)
}

// MachinesFor returns the host machine table for goarch.
func MachinesFor(goarch string) []elf.Machine {
	machines := machinesByGOARCH[goarch]
	out := make([]elf.Machine, len(machines))
	copy(out, machines)
	return out
}

var machineNames = sync.OnceValue(func() map[string]elf.Machine {
	names := make(map[string]elf.Machine)
	for i := range 1 << 16 {
		m := elf.Machine(i)
		name := m.String()
		// Unnamed values stringify as their decimal number.
		if _, err := strconv.Atoi(name); err == nil {
			continue
		}
		names[name] = m
	}
	return names
})

// ParseMachine resolves a machine name such as "EM_X86_64", "x86_64" or a
// decimal value such as "62".
func ParseMachine(s string) (elf.Machine, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty name", ErrUnknownMachine)
	}

	if n, err := strconv.ParseUint(s, 10, 16); err == nil {
		return elf.Machine(n), nil
	}

	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "EM_") {
		name = "EM_" + name
	}
	if m, ok := machineNames()[name]; ok {
		return m, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownMachine, s)
}

// ParseMachines resolves every name in names, preserving order.
func ParseMachines(names []string) ([]elf.Machine, error) {
	machines := make([]elf.Machine, 0, len(names))
	for _, name := range names {
		m, err := ParseMachine(name)
		if err != nil {
			return nil, err
		}
		machines = append(machines, m)
	}
	return machines, nil
}
