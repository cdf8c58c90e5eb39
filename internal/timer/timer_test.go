package timer

import (
	"testing"

	"github.com/Bl41r/gb-emulator-go/internal/interrupt"
)

func TestDIV_IncrementsEvery64MCycles(t *testing.T) {
	tm := New()
	ic := &interrupt.Controller{}
	tm.Step(63, ic)
	if tm.ReadDIV() != 0 {
		t.Fatalf("DIV after 63 m-cycles got %d want 0", tm.ReadDIV())
	}
	tm.Step(1, ic)
	if tm.ReadDIV() != 1 {
		t.Fatalf("DIV after 64 m-cycles got %d want 1", tm.ReadDIV())
	}
}

func TestDIV_WriteResetsToZero(t *testing.T) {
	tm := New()
	ic := &interrupt.Controller{}
	tm.Step(200, ic)
	if tm.ReadDIV() == 0 {
		t.Fatalf("DIV should have advanced")
	}
	tm.WriteDIV()
	if tm.ReadDIV() != 0 {
		t.Fatalf("DIV after write got %d want 0", tm.ReadDIV())
	}
}

func TestTIMA_OverflowReloadsFromTMAAndRequestsIRQ(t *testing.T) {
	tm := New()
	ic := &interrupt.Controller{}
	tm.WriteTMA(0x10)
	tm.WriteTAC(0x05) // enabled, rate 01 -> every 4 m-cycles
	tm.WriteTIMA(0xFF)
	tm.Step(4, ic) // one falling edge -> overflow handled within this Step
	if tm.ReadTIMA() != 0x10 {
		t.Fatalf("TIMA after overflow got %#02x want 0x10", tm.ReadTIMA())
	}
	if ic.Pending()&(1<<interrupt.Timer) != 0 {
		t.Fatalf("Timer IRQ should require IE to be set to be Pending")
	}
	ic.IE = 1 << interrupt.Timer
	if ic.Pending() == 0 {
		t.Fatalf("expected Timer IF bit requested")
	}
}

func TestTAC_DisabledNeverIncrementsTIMA(t *testing.T) {
	tm := New()
	ic := &interrupt.Controller{}
	tm.WriteTAC(0x01) // rate selected but enable bit clear
	tm.Step(1000, ic)
	if tm.ReadTIMA() != 0 {
		t.Fatalf("TIMA got %d want 0 with timer disabled", tm.ReadTIMA())
	}
}
