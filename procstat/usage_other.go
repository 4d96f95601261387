//go:build !unix

package procstat

// ReadUsage is not available on this platform.
func ReadUsage() (Usage, error) {
	return Usage{}, ErrUnsupportedPlatform
}
