// Package framebuffer holds the 160x144 RGBA8888 pixel sink the PPU draws
// into and the host reads from. It is the "read-only view of the 160x144
// pixel framebuffer" external interface from spec.md §1.
package framebuffer

const (
	Width  = 160
	Height = 144
)

// shades is the RGBA mapping for the four palette-resolved gray levels,
// per spec.md §4.4 step 6.
var shades = [4][4]byte{
	{255, 255, 255, 0xFF},
	{192, 192, 192, 0xFF},
	{96, 96, 96, 0xFF},
	{0, 0, 0, 0xFF},
}

// Buffer is a fixed 160x144 row-major RGBA8888 framebuffer.
type Buffer struct {
	pix [Width * Height * 4]byte
}

// SetShade writes the RGBA color for shade (0..3) at (x, y).
func (b *Buffer) SetShade(x, y int, shade byte) {
	i := (y*Width + x) * 4
	c := shades[shade&0x03]
	b.pix[i+0] = c[0]
	b.pix[i+1] = c[1]
	b.pix[i+2] = c[2]
	b.pix[i+3] = c[3]
}

// Pixels returns the raw RGBA8888 bytes, row-major top-to-bottom.
func (b *Buffer) Pixels() []byte { return b.pix[:] }
