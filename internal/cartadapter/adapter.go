// Package cartadapter demonstrates the extension point spec.md describes
// as "the core must call out to a cartridge adapter": implementations of
// the same cart.Cartridge interface the Bus consumes, for bank-switching
// cartridges the core itself does not implement (MBC1, MBC3, MBC5).
//
// Nothing in internal/machine or internal/bus imports this package; a host
// that wants to run a banked ROM constructs one of these adapters itself
// and hands it to bus.NewWithCartridge, exactly the "narrow interface"
// spec.md §1 calls for.
package cartadapter

import (
	"fmt"

	"github.com/Bl41r/gb-emulator-go/internal/cart"
)

// BatteryBacked is implemented by adapters whose external RAM should
// survive across sessions.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// New picks an adapter implementation based on the parsed header's
// cartridge type. It returns an error for types this package also does not
// implement (MBC2 and beyond are left for a further adapter).
func New(h *cart.Header, rom []byte) (cart.Cartridge, error) {
	switch h.CartType {
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h.RAMSizeBytes), nil
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h.RAMSizeBytes), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(rom, h.RAMSizeBytes), nil
	default:
		return nil, fmt.Errorf("cartadapter: no adapter for cartridge type %#02x", h.CartType)
	}
}
