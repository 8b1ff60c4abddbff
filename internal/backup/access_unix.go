//go:build unix

package backup

import "golang.org/x/sys/unix"

func checkReadable(path string) error {
	return unix.Access(path, unix.R_OK)
}

func checkWritable(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}
