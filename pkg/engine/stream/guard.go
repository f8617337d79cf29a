// ABOUTME: Renderer ownership across stream rebuilds
// ABOUTME: The stream callback holds the renderer until the stream closes and hands it back
package stream

// guard lends a renderer to one stream's data callback
type guard struct {
	renderer Renderer
	back     chan Renderer
}

func newGuard(r Renderer) *guard {
	return &guard{renderer: r, back: make(chan Renderer, 1)}
}

func (g *guard) process(out []float32, channels int) {
	g.renderer.Process(out, channels)
}

// release sends the renderer back once the stream no longer calls process.
// The slot holds one value and only release fills it.
func (g *guard) release() {
	select {
	case g.back <- g.renderer:
	default:
		panic("stream: renderer hand-back slot full")
	}
}
