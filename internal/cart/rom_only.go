package cart

// ROMOnly implements a cartridge with a single fixed ROM image and no
// external RAM or bank switching (cartridge type 0x00).
type ROMOnly struct {
	rom []byte
}

func NewROMOnly(rom []byte) *ROMOnly {
	return &ROMOnly{rom: rom}
}

func (c *ROMOnly) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if int(addr) < len(c.rom) {
			return c.rom[addr]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF: // no external RAM
		return 0xFF
	default:
		return 0xFF
	}
}

func (c *ROMOnly) Write(addr uint16, value byte) {
	// ROM-only: writes to ROM (0x0000-0x7FFF) and absent external RAM
	// (0xA000-0xBFFF) are both no-ops.
}
