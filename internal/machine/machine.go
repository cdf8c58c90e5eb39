// Package machine wires cartridge, bus, and CPU into the single driver an
// embedding host uses, per spec.md §1's "narrow interface" requirement.
// Grounded on the teacher's internal/emu/emu.go Machine (same LoadCartridge
// / Framebuffer / SetButtons surface), replaced with the real CPU-bus-PPU
// pipeline instead of the teacher's Milestone-0 test-pattern stub.
package machine

import (
	"github.com/Bl41r/gb-emulator-go/internal/bus"
	"github.com/Bl41r/gb-emulator-go/internal/cpu"
	"github.com/Bl41r/gb-emulator-go/internal/framebuffer"
)

// Buttons mirrors the eight DMG joypad inputs.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= bus.JoypRight
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Select {
		m |= bus.JoypSelectBtn
	}
	if b.Start {
		m |= bus.JoypStart
	}
	return m
}

// Config holds host-facing emulation settings.
type Config struct {
	Trace bool // stored on the Machine but not read by it; nothing is logged
}

// VBlankFunc is invoked once per frame as soon as the PPU enters VBlank,
// mirroring spec.md §4.4's "host may register a callback fired when the
// PPU enters VBlank" requirement.
type VBlankFunc func()

// Machine is the top-level emulator driver: cartridge + bus + CPU, stepped
// one instruction at a time or run frame-at-a-time by the host.
type Machine struct {
	cfg Config

	bus *bus.Bus
	cpu *cpu.CPU

	onVBlank  VBlankFunc
	wasVBlank bool
}

// New constructs an unloaded Machine; call LoadCartridge before stepping.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// LoadCartridge resets the Machine around a fresh ROM-only cartridge image.
// Use bus.NewWithCartridge + LoadBus for bank-switched cartridges handled
// by an external internal/cartadapter adapter.
func (m *Machine) LoadCartridge(rom []byte) error {
	b, err := bus.New(rom)
	if err != nil {
		return err
	}
	m.bus = b
	m.cpu = cpu.New(b)
	m.cpu.ResetNoBoot()
	m.wasVBlank = false
	return nil
}

// LoadBus wires an already-constructed Bus (e.g. one built around a
// cartadapter.New adapter for a banked cartridge) and resets the CPU
// around it.
func (m *Machine) LoadBus(b *bus.Bus) {
	m.bus = b
	m.cpu = cpu.New(b)
	m.cpu.ResetNoBoot()
	m.wasVBlank = false
}

// OnVBlank registers fn to be called once per frame, the instant the PPU
// transitions into VBlank mode.
func (m *Machine) OnVBlank(fn VBlankFunc) { m.onVBlank = fn }

// StepInstruction retires exactly one CPU instruction (or services one
// pending interrupt, or spends one m-cycle halted), returning the m-cycles
// it spent. On an UnimplementedOpcode error the CPU's PC is left at the
// offending opcode's address and the Machine is not stepped further.
func (m *Machine) StepInstruction() (int, error) {
	cycles, err := m.cpu.Step()
	if err != nil {
		return cycles, err
	}
	m.checkVBlank()
	return cycles, nil
}

// StepFrame retires instructions until the PPU has produced a complete
// frame (or an error occurs), returning the total m-cycles spent.
func (m *Machine) StepFrame() (int, error) {
	total := 0
	for {
		cycles, err := m.StepInstruction()
		total += cycles
		if err != nil {
			return total, err
		}
		if m.bus.PPU().TakeFrameReady() {
			return total, nil
		}
	}
}

func (m *Machine) checkVBlank() {
	inVBlank := m.bus.PPU().LY() >= 144
	if inVBlank && !m.wasVBlank && m.onVBlank != nil {
		m.onVBlank()
	}
	m.wasVBlank = inVBlank
}

// Framebuffer returns the live 160x144 RGBA framebuffer the PPU renders
// into. The host should read it only after StepFrame returns or inside
// OnVBlank.
func (m *Machine) Framebuffer() *framebuffer.Buffer { return m.bus.PPU().Framebuffer() }

// SetButtons updates which joypad buttons are currently pressed.
func (m *Machine) SetButtons(b Buttons) { m.bus.SetJoypadState(b.mask()) }

// Bus exposes the underlying Bus, for hosts that need direct register
// access (e.g. a debugger or a trace UI).
func (m *Machine) Bus() *bus.Bus { return m.bus }

// CPU exposes the underlying CPU, for the same reason.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }
