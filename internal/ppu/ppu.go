// Package ppu implements the scanline-based, pixel-FIFO-free PPU mode
// state machine and tile cache described in spec.md §4.4. It is grounded on
// the teacher's internal/ppu/ppu.go mode scheduler (there driven one dot,
// i.e. one t-cycle, at a time; here driven one m-cycle at a time per
// spec.md's table of m-cycle thresholds) and on the teacher's
// internal/bus.go VRAM-write tile cache hook.
package ppu

import "github.com/Bl41r/gb-emulator-go/internal/framebuffer"

// Mode values match STAT bits 0-1.
const (
	HBlank  = 0
	VBlank  = 1
	OAMScan = 2
	Draw    = 3
)

// m-cycle thresholds for each mode, per spec.md §4.4's table.
const (
	oamThreshold    = 20
	drawThreshold   = 43
	hblankThreshold = 51
	vblankThreshold = 114
)

// numTiles is the tile count addressable within 0x8000-0x97FF
// (0x1800 bytes / 16 bytes per tile). spec.md's prose rounds this to "512
// tiles"; the cache is sized to the VRAM tile area it actually
// denormalizes (see DESIGN.md).
const numTiles = 384

// InterruptRequester requests an IF bit be set (0:VBlank, 1:STAT, ...).
type InterruptRequester func(bit int)

// PPU owns VRAM, OAM, the LCDC/STAT/... registers, the mode state machine,
// the tile cache, and the framebuffer it exclusively writes.
type PPU struct {
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	lcdc, stat      byte
	scy, scx        byte
	ly, lyc         byte
	bgp, obp0, obp1 byte
	wy, wx          byte

	mode      byte
	modeClock int // m-cycles into the current mode

	tileCache [numTiles][8][8]byte // [tile][row][col] -> palette index 0..3

	fb         framebuffer.Buffer
	frameReady bool

	req InterruptRequester
}

func New(req InterruptRequester) *PPU {
	return &PPU{req: req, mode: OAMScan}
}

// Framebuffer returns the read-only pixel sink (spec.md §6).
func (p *PPU) Framebuffer() *framebuffer.Buffer { return &p.fb }

// TakeFrameReady reports and clears whether a V-blank entry has occurred
// since the last call (spec.md §6 frame_ready()).
func (p *PPU) TakeFrameReady() bool {
	r := p.frameReady
	p.frameReady = false
	return r
}

func (p *PPU) LY() byte { return p.ly }

// CPURead serves VRAM, OAM, and the PPU-owned I/O registers.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and the PPU-owned I/O registers.
// Writes to LY (FF44) are ignored, since LY is read-only from outside
// (spec.md §6). Unlike the teacher, VRAM/OAM are not mode-gated: the
// inaccessible-during-mode-2/3 quirk is sub-instruction memory timing,
// which spec.md's Non-goals explicitly exclude.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x97FF:
		p.vram[addr-0x8000] = value
		p.updateTile(addr)
	case addr >= 0x9800 && addr <= 0x9FFF:
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if prev&0x80 != 0 && value&0x80 == 0 {
			p.ly = 0
			p.modeClock = 0
			p.setMode(HBlank)
			p.updateLYC()
		} else if prev&0x80 == 0 && value&0x80 != 0 {
			p.ly = 0
			p.modeClock = 0
			p.setMode(OAMScan)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		// read-only from the CPU's perspective
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// updateTile recomputes the cached 8x8 palette-index row touched by a write
// at addr, re-reading both bytes of that row from VRAM (spec.md §4.4
// "tile cache kept coherent with VRAM on every write").
func (p *PPU) updateTile(addr uint16) {
	base := addr & 0xFFFE
	off := base - 0x8000
	lo := p.vram[off]
	hi := p.vram[off+1]
	tileIdx := off / 16
	row := (off % 16) / 2
	for bit := 0; bit < 8; bit++ {
		b := uint(7 - bit)
		ci := ((hi>>b)&1)<<1 | ((lo >> b) & 1)
		p.tileCache[tileIdx][row][bit] = ci
	}
}

// Step advances the PPU state machine by m m-cycles.
func (p *PPU) Step(m int) {
	for i := 0; i < m; i++ {
		if p.lcdc&0x80 == 0 {
			continue
		}
		p.modeClock++
		switch p.mode {
		case OAMScan:
			if p.modeClock >= oamThreshold {
				p.modeClock = 0
				p.setMode(Draw)
			}
		case Draw:
			if p.modeClock >= drawThreshold {
				p.modeClock = 0
				p.renderScanline()
				p.setMode(HBlank)
			}
		case HBlank:
			if p.modeClock >= hblankThreshold {
				p.modeClock = 0
				p.ly++
				p.updateLYC()
				if p.ly == 144 {
					p.setMode(VBlank)
					p.frameReady = true
					p.requestIRQ(0)
					if p.stat&(1<<4) != 0 {
						p.requestIRQ(1)
					}
				} else {
					p.setMode(OAMScan)
				}
			}
		case VBlank:
			if p.modeClock >= vblankThreshold {
				p.modeClock = 0
				p.ly++
				if p.ly > 153 {
					p.ly = 0
					p.updateLYC()
					p.setMode(OAMScan)
				} else {
					p.updateLYC()
				}
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	p.stat = (p.stat &^ 0x03) | mode
	p.mode = mode
	if prev == mode {
		return
	}
	switch mode {
	case HBlank:
		if p.stat&(1<<3) != 0 {
			p.requestIRQ(1)
		}
	case OAMScan:
		if p.stat&(1<<5) != 0 {
			p.requestIRQ(1)
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if p.stat&(1<<6) != 0 {
			p.requestIRQ(1)
		}
	} else {
		p.stat &^= 1 << 2
	}
}

func (p *PPU) requestIRQ(bit int) {
	if p.req != nil {
		p.req(bit)
	}
}

// renderScanline draws the background, and the window where enabled, for
// the current LY into the framebuffer, per spec.md §4.4 steps 1-6. Sprites
// are a nice-to-have the teacher implements but spec.md treats as optional;
// see DESIGN.md for the decision to omit them from this pass.
func (p *PPU) renderScanline() {
	ly := p.ly
	if p.lcdc&0x01 == 0 {
		for x := 0; x < framebuffer.Width; x++ {
			p.fb.SetShade(x, int(ly), 0)
		}
		return
	}

	bgMapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		bgMapBase = 0x9C00
	}
	winMapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		winMapBase = 0x9C00
	}
	windowEnabled := p.lcdc&0x20 != 0 && int(ly) >= int(p.wy)

	for x := 0; x < framebuffer.Width; x++ {
		var tileIDAddr uint16
		var pixelRow, pixelCol int

		if windowEnabled && x >= int(p.wx)-7 {
			wy := int(ly) - int(p.wy)
			wx := x - (int(p.wx) - 7)
			tileRow := wy >> 3
			tileCol := wx >> 3
			tileIDAddr = winMapBase + uint16(tileRow*32+tileCol)
			pixelRow = wy & 7
			pixelCol = wx & 7
		} else {
			y := (int(ly) + int(p.scy)) & 0xFF
			bx := (x + int(p.scx)) & 0xFF
			tileRow := y >> 3
			tileCol := bx >> 3
			tileIDAddr = bgMapBase + uint16(tileRow*32+tileCol)
			pixelRow = y & 7
			pixelCol = bx & 7
		}

		tileID := p.vram[tileIDAddr-0x8000]
		var tileIndex int
		if p.lcdc&0x10 != 0 {
			tileIndex = int(tileID)
		} else {
			tileIndex = 256 + int(int8(tileID))
		}

		colorIdx := p.tileCache[tileIndex][pixelRow][pixelCol]
		shade := (p.bgp >> (colorIdx * 2)) & 0x03
		p.fb.SetShade(x, int(ly), shade)
	}
}
