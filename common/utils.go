// package common contains small helpers shared by the engine packages: matrix math,
// the shared logger, and generic value utilities. Nothing here is interface-wrapped.
package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
// Configuration layers use it to fall back to defaults when a field was left unset.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
