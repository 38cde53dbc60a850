//go:build !unix

package fsutil

import "os"

// Without flock the lock file only marks ownership; exclusion is not enforced.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
