// Package cart parses the DMG cartridge header and provides the core's
// ROM-only cartridge adapter. Bank-switching cartridges (MBC1/2/3/5) are
// explicitly out of the core's scope; see internal/cartadapter for an
// example of a pluggable external adapter implementing the same interface.
package cart

import "fmt"

// Cartridge is the minimal interface the Bus needs for ROM/RAM access.
// Addresses are CPU addresses (0x0000-0x7FFF for ROM, 0xA000-0xBFFF for
// external RAM).
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// TruncatedRom is returned when the supplied image is too short to contain
// a cartridge header.
type TruncatedRom struct {
	Len int
}

func (e *TruncatedRom) Error() string {
	return fmt.Sprintf("cart: truncated ROM image (%d bytes, need at least %#04x)", e.Len, headerEnd+1)
}

// UnsupportedCartridgeType is returned when the header's cartridge type
// byte (0x0147) names a bank controller the core does not implement.
type UnsupportedCartridgeType struct {
	Type byte
}

func (e *UnsupportedCartridgeType) Error() string {
	return fmt.Sprintf("cart: unsupported cartridge type %#02x (core implements ROM-only; use an external adapter)", e.Type)
}

// New parses rom's header and returns a ROM-only adapter. It rejects any
// cartridge type other than 0x00 (ROM ONLY) with UnsupportedCartridgeType,
// and rejects images too short to carry a header with TruncatedRom.
func New(rom []byte) (*ROMOnly, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	if h.CartType != 0x00 {
		return nil, &UnsupportedCartridgeType{Type: h.CartType}
	}
	return NewROMOnly(rom), nil
}
