//go:build !windows

package mpv

// isPipeReady is unused off Windows, where mpv listens on a unix socket
func isPipeReady(string) bool {
	return false
}
