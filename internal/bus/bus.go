// Package bus implements the single CPU-visible read/write surface
// described in spec.md §4.1, wiring the cartridge, work RAM, high RAM, PPU,
// timer and interrupt controller together. Grounded on the teacher's
// internal/bus.go address decoder (same region table, echo-RAM mirroring,
// and OAM DMA trigger), adapted to delegate DIV/TIMA/TMA/TAC to
// internal/timer and IE/IF to internal/interrupt instead of tracking them
// itself, and driven in m-cycles rather than t-cycles.
package bus

import (
	"github.com/Bl41r/gb-emulator-go/internal/cart"
	"github.com/Bl41r/gb-emulator-go/internal/interrupt"
	"github.com/Bl41r/gb-emulator-go/internal/ppu"
	"github.com/Bl41r/gb-emulator-go/internal/timer"
)

// Joypad button bitmasks for SetJoypadState. Set bits mean "pressed".
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// Bus wires CPU-visible address space to cartridge, WRAM, HRAM, PPU, timer,
// and the interrupt controller.
type Bus struct {
	cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF; echo 0xE000-0xFDFF mirrors 0xC000-0xDDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ppu *ppu.PPU
	tm  *timer.Timer
	ic  *interrupt.Controller

	joypSelect byte
	joypad     byte
	joypLower4 byte // last computed active-low lower nibble, for edge detection

	sb byte // FF01, plain RAM per spec.md §6
	sc byte // FF02, plain RAM per spec.md §6

	dma       byte
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int
}

// New constructs a Bus with a ROM-only cartridge already attached.
func New(rom []byte) (*Bus, error) {
	c, err := cart.New(rom)
	if err != nil {
		return nil, err
	}
	return NewWithCartridge(c), nil
}

// NewWithCartridge wires a provided cartridge implementation.
func NewWithCartridge(c cart.Cartridge) *Bus {
	b := &Bus{cart: c, tm: timer.New(), ic: &interrupt.Controller{}}
	b.ppu = ppu.New(func(bit int) { b.ic.Request(bit) })
	return b
}

// PPU returns the internal PPU for framebuffer/frame-ready queries.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Interrupts returns the shared interrupt controller, for the CPU's
// dispatch logic.
func (b *Bus) Interrupts() *interrupt.Controller { return b.ic }

// Cart returns the underlying cartridge.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		return b.wram[(addr-0x2000)-0xC000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFF00:
		return b.readJoyp()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return b.sc
	case addr == 0xFF04:
		return b.tm.ReadDIV()
	case addr == 0xFF05:
		return b.tm.ReadTIMA()
	case addr == 0xFF06:
		return b.tm.ReadTMA()
	case addr == 0xFF07:
		return b.tm.ReadTAC()
	case addr == 0xFF0F:
		return 0xE0 | (b.ic.IF & 0x1F)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr == 0xFF46:
		return b.dma
	case addr == 0xFFFF:
		return b.ic.IE
	}
	return 0xFF
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
	case addr >= 0xE000 && addr <= 0xFDFF:
		b.wram[(addr-0x2000)-0xC000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if !b.dmaActive {
			b.ppu.CPUWrite(addr, value)
		}
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFF00:
		b.joypSelect = value & 0x30
		b.updateJoypadIRQ()
	case addr == 0xFF01:
		b.sb = value
	case addr == 0xFF02:
		b.sc = value
	case addr == 0xFF04:
		b.tm.WriteDIV()
	case addr == 0xFF05:
		b.tm.WriteTIMA(value)
	case addr == 0xFF06:
		b.tm.WriteTMA(value)
	case addr == 0xFF07:
		b.tm.WriteTAC(value)
	case addr == 0xFF0F:
		b.ic.IF = value & 0x1F
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF46:
		b.dma = value
		b.dmaActive = true
		b.dmaSrc = uint16(value) << 8
		b.dmaIndex = 0
	case addr == 0xFFFF:
		b.ic.IE = value
	}
}

func (b *Bus) readJoyp() byte {
	res := byte(0xC0 | (b.joypSelect & 0x30) | 0x0F)
	if b.joypSelect&0x10 == 0 {
		if b.joypad&JoypRight != 0 {
			res &^= 0x01
		}
		if b.joypad&JoypLeft != 0 {
			res &^= 0x02
		}
		if b.joypad&JoypUp != 0 {
			res &^= 0x04
		}
		if b.joypad&JoypDown != 0 {
			res &^= 0x08
		}
	}
	if b.joypSelect&0x20 == 0 {
		if b.joypad&JoypA != 0 {
			res &^= 0x01
		}
		if b.joypad&JoypB != 0 {
			res &^= 0x02
		}
		if b.joypad&JoypSelectBtn != 0 {
			res &^= 0x04
		}
		if b.joypad&JoypStart != 0 {
			res &^= 0x08
		}
	}
	return res
}

// SetJoypadState sets which buttons are currently pressed (set bits =
// pressed), per the Joyp* bitmask constants.
func (b *Bus) SetJoypadState(mask byte) {
	b.joypad = mask
	b.updateJoypadIRQ()
}

func (b *Bus) updateJoypadIRQ() {
	newLower := byte(0x0F)
	if b.joypSelect&0x10 == 0 {
		if b.joypad&JoypRight != 0 {
			newLower &^= 0x01
		}
		if b.joypad&JoypLeft != 0 {
			newLower &^= 0x02
		}
		if b.joypad&JoypUp != 0 {
			newLower &^= 0x04
		}
		if b.joypad&JoypDown != 0 {
			newLower &^= 0x08
		}
	}
	if b.joypSelect&0x20 == 0 {
		if b.joypad&JoypA != 0 {
			newLower &^= 0x01
		}
		if b.joypad&JoypB != 0 {
			newLower &^= 0x02
		}
		if b.joypad&JoypSelectBtn != 0 {
			newLower &^= 0x04
		}
		if b.joypad&JoypStart != 0 {
			newLower &^= 0x08
		}
	}
	falling := b.joypLower4 &^ newLower
	if falling != 0 {
		b.ic.Request(4)
	}
	b.joypLower4 = newLower
}

// Step advances timer, PPU, and OAM DMA by m m-cycles. The CPU calls this
// once per instruction with the m-cycle count it just spent.
func (b *Bus) Step(m int) {
	b.tm.Step(m, b.ic)
	b.ppu.Step(m)
	for i := 0; i < m && b.dmaActive; i++ {
		v := b.Read(b.dmaSrc + uint16(b.dmaIndex))
		b.ppu.CPUWrite(0xFE00+uint16(b.dmaIndex), v)
		b.dmaIndex++
		if b.dmaIndex >= 0xA0 {
			b.dmaActive = false
		}
	}
}
