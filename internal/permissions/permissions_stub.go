//go:build !darwin

package permissions

// Check reports every source as authorized outside macOS; access failures
// surface from the capture backend instead.
func Check(src Source) Status {
	return Authorized
}

// Request is a no-op on non-macOS platforms.
func Request(src Source) {}
