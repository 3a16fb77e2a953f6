package exec

// Layer is a pure transform: it never performs I/O and never spawns;
// spawning is the bottom backend's sole responsibility.
type Layer interface {
	Name() string
	Transform(cmd Command) (Command, error)
}

// LayerStack is an ordered sequence of layers. In list order the first
// layer is the outermost wrapper (e.g. SSH) and the last is closest to the
// process (e.g. Docker exec) — see spec §3/§4.4. Rendering therefore folds
// the stack from the innermost (last-listed) layer outward, so the
// first-listed layer ends up wrapping everything else in the final argv.
type LayerStack struct {
	layers []Layer
}

// NewLayerStack builds a stack from layers in outermost-to-innermost order.
func NewLayerStack(layers ...Layer) LayerStack {
	return LayerStack{layers: append([]Layer(nil), layers...)}
}

// Layers returns the stack's layers in outermost-to-innermost order.
func (s LayerStack) Layers() []Layer {
	return append([]Layer(nil), s.layers...)
}

// Apply folds the stack over cmd. An empty stack leaves cmd unchanged.
func (s LayerStack) Apply(cmd Command) (Command, error) {
	result := cmd

	for i := len(s.layers) - 1; i >= 0; i-- {
		var err error

		result, err = s.layers[i].Transform(result)
		if err != nil {
			return Command{}, err
		}
	}

	return result, nil
}
