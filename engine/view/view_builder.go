package view

// ViewBuilderOption is a functional option applied to a view during construction via NewView.
type ViewBuilderOption func(*viewImpl)

// WithViewMatrix sets the initial world-to-view matrix.
//
// Parameters:
//   - m: the view matrix (column-major)
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithViewMatrix(m [16]float32) ViewBuilderOption {
	return func(v *viewImpl) {
		v.viewMatrix = m
	}
}

// WithComponents attaches marker components at construction.
//
// Parameters:
//   - components: the components to attach
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithComponents(components ...any) ViewBuilderOption {
	return func(v *viewImpl) {
		v.Insert(components...)
	}
}
