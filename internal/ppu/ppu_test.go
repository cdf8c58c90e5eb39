package ppu

import "testing"

func TestModeSequence_OneScanline(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x91) // LCD+BG on

	if p.mode != OAMScan {
		t.Fatalf("initial mode got %d want OAMScan", p.mode)
	}
	p.Step(oamThreshold - 1)
	if p.mode != OAMScan {
		t.Fatalf("mode got %d want still OAMScan", p.mode)
	}
	p.Step(1)
	if p.mode != Draw {
		t.Fatalf("mode got %d want Draw", p.mode)
	}
	p.Step(drawThreshold)
	if p.mode != HBlank {
		t.Fatalf("mode got %d want HBlank", p.mode)
	}
	p.Step(hblankThreshold)
	if p.mode != OAMScan {
		t.Fatalf("mode got %d want OAMScan after line 0", p.mode)
	}
	if p.LY() != 1 {
		t.Fatalf("LY got %d want 1", p.LY())
	}
}

func TestVBlank_EntersAfterLine143AndRequestsIRQ(t *testing.T) {
	var requested []int
	p := New(func(bit int) { requested = append(requested, bit) })
	p.CPUWrite(0xFF40, 0x91)

	lineTotal := oamThreshold + drawThreshold + hblankThreshold
	p.Step(lineTotal * 144)

	if p.mode != VBlank {
		t.Fatalf("mode got %d want VBlank", p.mode)
	}
	if p.LY() != 144 {
		t.Fatalf("LY got %d want 144", p.LY())
	}
	if !p.TakeFrameReady() {
		t.Fatalf("expected frame ready on VBlank entry")
	}
	found := false
	for _, b := range requested {
		if b == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected VBlank IRQ (bit 0) requested")
	}
}

func TestLY_WrapsAt153BackToZero(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x91)
	lineTotal := oamThreshold + drawThreshold + hblankThreshold

	p.Step(lineTotal * 144) // reach line 144, mode VBlank
	p.Step(vblankThreshold * 9)
	if p.LY() != 153 {
		t.Fatalf("LY got %d want 153", p.LY())
	}
	p.Step(vblankThreshold)
	if p.LY() != 0 {
		t.Fatalf("LY got %d want 0 after wraparound", p.LY())
	}
	if p.mode != OAMScan {
		t.Fatalf("mode got %d want OAMScan after wraparound", p.mode)
	}
}

func TestTileCache_UpdatedOnVRAMWrite(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0x8000, 0xFF)
	p.CPUWrite(0x8001, 0x00)

	for col := 0; col < 8; col++ {
		if got := p.tileCache[0][0][col]; got != 1 {
			t.Fatalf("tileCache[0][0][%d] got %d want 1", col, got)
		}
	}
}

func TestLYC_CoincidenceFlagAndSTATInterrupt(t *testing.T) {
	var requested []int
	p := New(func(bit int) { requested = append(requested, bit) })
	p.CPUWrite(0xFF45, 5) // LYC=5
	p.CPUWrite(0xFF41, 0x40 | p.CPURead(0xFF41)) // enable LYC=LY STAT source
	p.CPUWrite(0xFF40, 0x91)

	lineTotal := oamThreshold + drawThreshold + hblankThreshold
	p.Step(lineTotal * 5)

	if p.LY() != 5 {
		t.Fatalf("LY got %d want 5", p.LY())
	}
	stat := p.CPURead(0xFF41)
	if stat&(1<<2) == 0 {
		t.Fatalf("expected coincidence flag set")
	}
	found := false
	for _, b := range requested {
		if b == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected STAT IRQ requested on LYC match")
	}
}
