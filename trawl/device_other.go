//go:build !unix

package trawl

import "os"

// deviceOf is a no-op on platforms without unix device numbers; the
// same-device guard is disabled there.
func deviceOf(info os.FileInfo) (uint64, bool) {
	return 0, false
}
