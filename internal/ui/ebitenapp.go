// Package ui hosts the interactive ebiten-backed front end: a window that
// blits the core's framebuffer every frame and forwards keyboard state to
// the joypad. Grounded on the teacher's internal/ui/ebitenapp.go Game loop
// (same ebiten.Game Update/Draw/Layout shape and key-to-button mapping),
// trimmed of the menu system, save states, audio, and settings persistence
// the teacher built around its APU/CGB extensions — all out of scope here.
package ui

import (
	"fmt"

	"github.com/Bl41r/gb-emulator-go/internal/machine"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// App implements ebiten.Game around a machine.Machine.
type App struct {
	cfg Config
	m   *machine.Machine
	tex *ebiten.Image

	paused bool
	fast   bool // hold Tab to run 4 emulated frames per Update tick

	stepErr error
}

// NewApp wires an App around an already-loaded Machine.
func NewApp(cfg Config, m *machine.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	return &App{cfg: cfg, m: m}
}

// Run starts the ebiten game loop; it blocks until the window closes.
func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if a.stepErr != nil {
		return a.stepErr
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return fmt.Errorf("ui: quit requested")
	}

	a.m.SetButtons(a.readButtons())

	if a.paused {
		return nil
	}

	frames := 1
	if a.fast {
		frames = 4
	}
	for i := 0; i < frames; i++ {
		if _, err := a.m.StepFrame(); err != nil {
			a.stepErr = fmt.Errorf("ui: core halted: %w", err)
			return a.stepErr
		}
	}
	return nil
}

func (a *App) readButtons() machine.Buttons {
	return machine.Buttons{
		Right:  ebiten.IsKeyPressed(ebiten.KeyRight),
		Left:   ebiten.IsKeyPressed(ebiten.KeyLeft),
		Up:     ebiten.IsKeyPressed(ebiten.KeyUp),
		Down:   ebiten.IsKeyPressed(ebiten.KeyDown),
		A:      ebiten.IsKeyPressed(ebiten.KeyZ),
		B:      ebiten.IsKeyPressed(ebiten.KeyX),
		Start:  ebiten.IsKeyPressed(ebiten.KeyEnter),
		Select: ebiten.IsKeyPressed(ebiten.KeyShiftRight),
	}
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer().Pixels())
	screen.DrawImage(a.tex, nil)
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) { return 160, 144 }
