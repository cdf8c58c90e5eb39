package cart

import (
	"errors"
	"testing"
)

func TestNew_ROMOnly(t *testing.T) {
	rom := buildROM("TEST", 0x00, 0x00, 0x00, 32*1024)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Read(0x0104); got != nintendoLogo[0] {
		t.Fatalf("Read(0x0104) got %#02x want %#02x", got, nintendoLogo[0])
	}
}

func TestNew_RejectsBankedCartridge(t *testing.T) {
	rom := buildROM("TEST", 0x01, 0x01, 0x02, 64*1024) // MBC1
	_, err := New(rom)
	if err == nil {
		t.Fatalf("expected UnsupportedCartridgeType, got nil")
	}
	var target *UnsupportedCartridgeType
	if !errors.As(err, &target) {
		t.Fatalf("error %v is not *UnsupportedCartridgeType", err)
	}
	if target.Type != 0x01 {
		t.Fatalf("Type got %#02x want 0x01", target.Type)
	}
}

func TestNew_RejectsTruncatedRom(t *testing.T) {
	_, err := New(make([]byte, 0x10))
	if err == nil {
		t.Fatalf("expected TruncatedRom, got nil")
	}
	if _, ok := err.(*TruncatedRom); !ok {
		t.Fatalf("error %v is not *TruncatedRom", err)
	}
}

func TestROMOnly_WritesAreNoOps(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0x42
	c := NewROMOnly(rom)
	c.Write(0x0100, 0x99)
	if got := c.Read(0x0100); got != 0x42 {
		t.Fatalf("ROM write should be ignored, got %#02x", got)
	}
	if got := c.Read(0xA000); got != 0xFF {
		t.Fatalf("external RAM read without RAM got %#02x want 0xFF", got)
	}
}
