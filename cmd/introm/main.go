// Command introm runs a single ROM-only ROM headlessly on the CPU/bus core
// and reports pass/fail, for exercising CPU-instruction test ROMs that
// follow the Mooneye acceptance-suite convention, without a display. ROMs
// that report results over the serial port are not detected.
// Grounded on the teacher's cmd/cpurunner/main.go flag/trace harness,
// adapted to detect completion via the Mooneye register-magic + infinite
// JR loop convention instead of serial-port pattern matching, since
// spec.md keeps FF01/FF02 as plain RAM with no side effects.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Bl41r/gb-emulator-go/internal/bus"
	"github.com/Bl41r/gb-emulator-go/internal/cpu"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM (.gb)")
	steps := flag.Int("steps", 5_000_000, "max CPU steps to run")
	startPC := flag.Int("pc", 0x0100, "initial PC value")
	trace := flag.Bool("trace", false, "print PC/opcode/registers for every retired instruction")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("-rom is required")
	}
	rom, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("read rom: %v", err)
	}

	b, err := bus.New(rom)
	if err != nil {
		log.Fatalf("bus.New: %v", err)
	}
	c := cpu.New(b)
	c.ResetNoBoot()
	c.SetPC(uint16(*startPC))
	b.Write(0xFF40, 0x91) // LCD on, BG enabled, BG tile data at 0x8000

	start := time.Now()
	var deadline time.Time
	if *timeout > 0 {
		deadline = start.Add(*timeout)
	}

	var totalCycles int
	for i := 0; i < *steps; i++ {
		pc := c.PC
		var op byte
		if *trace {
			op = b.Read(pc)
		}
		cycles, err := c.Step()
		totalCycles += cycles
		if *trace {
			fmt.Printf("PC=%04X OP=%02X cyc=%d A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t\n",
				pc, op, cycles, c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L, c.SP, c.IME)
		}
		if err != nil {
			fmt.Printf("stopped on error after %d steps: %v\n", i+1, err)
			os.Exit(1)
		}
		if mooneyePassed(c, b) {
			fmt.Printf("PASSED (Mooneye magic) after %d steps, %d cycles, %s\n",
				i+1, totalCycles, time.Since(start).Truncate(time.Millisecond))
			return
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("timeout after %s\n", time.Since(start).Truncate(time.Millisecond))
			os.Exit(2)
		}
	}
	fmt.Printf("did not converge within %d steps, %d cycles, %s\n",
		*steps, totalCycles, time.Since(start).Truncate(time.Millisecond))
	os.Exit(3)
}

// mooneyePassed detects the Mooneye acceptance-suite convention: on
// success the ROM loads B,C,D,E,H,L with the Fibonacci magic 3,5,8,13,21,34
// and enters a tight JR -2 (0x18 0xFE) infinite loop at the current PC.
func mooneyePassed(c *cpu.CPU, b *bus.Bus) bool {
	if c.B != 3 || c.C != 5 || c.D != 8 || c.E != 13 || c.H != 21 || c.L != 34 {
		return false
	}
	return b.Read(c.PC) == 0x18 && b.Read(c.PC+1) == 0xFE
}
