package ppu

import "testing"

// writeTile writes an 8x8 tile of a single color index (0-3) at vramAddr.
func writeTile(p *PPU, vramAddr uint16, colorIdx byte) {
	var lo, hi byte
	if colorIdx&0x01 != 0 {
		lo = 0xFF
	}
	if colorIdx&0x02 != 0 {
		hi = 0xFF
	}
	for row := 0; row < 8; row++ {
		p.CPUWrite(vramAddr+uint16(row*2), lo)
		p.CPUWrite(vramAddr+uint16(row*2+1), hi)
	}
}

func TestRenderScanline_BackgroundTileThroughPalette(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF47, 0b11_10_01_00) // BGP: idx0->0 idx1->1 idx2->2 idx3->3
	writeTile(p, 0x8000, 3)           // tile 0 all color index 3
	p.CPUWrite(0x9800, 0x00)          // tile map entry (0,0) -> tile 0

	p.CPUWrite(0xFF40, 0x91) // LCD on, BG on, unsigned tile addressing, map 0x9800
	p.renderScanline()

	pix := p.Framebuffer().Pixels()
	// shade 3 maps to black (0,0,0,255) per framebuffer.shades.
	if pix[0] != 0 || pix[1] != 0 || pix[2] != 0 {
		t.Fatalf("pixel (0,0) got rgb(%d,%d,%d) want black", pix[0], pix[1], pix[2])
	}
}

func TestRenderScanline_BGDisabledIsBlank(t *testing.T) {
	p := New(nil)
	writeTile(p, 0x8000, 3)
	p.CPUWrite(0x9800, 0x00)
	p.CPUWrite(0xFF40, 0x80) // LCD on, BG/window disabled (bit0 clear)

	p.renderScanline()

	pix := p.Framebuffer().Pixels()
	if pix[0] != 255 || pix[1] != 255 || pix[2] != 255 {
		t.Fatalf("blank line pixel got rgb(%d,%d,%d) want white", pix[0], pix[1], pix[2])
	}
}

func TestRenderScanline_SignedTileAddressing(t *testing.T) {
	p := New(nil)
	// Tile -1 (id 0xFF) lives at 0x9000 + (-1)*16 = 0x8FF0, cache index 256-1=255.
	writeTile(p, 0x8FF0, 2)
	p.CPUWrite(0x9800, 0xFF) // map entry selects signed tile id -1
	p.CPUWrite(0xFF47, 0b11_10_01_00)
	p.CPUWrite(0xFF40, 0x81) // LCD on, BG on, signed addressing (bit4 clear), map 0x9800

	p.renderScanline()

	pix := p.Framebuffer().Pixels()
	if pix[0] != 96 {
		t.Fatalf("pixel (0,0) red channel got %d want 96 (shade 2)", pix[0])
	}
}
