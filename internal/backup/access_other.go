//go:build !unix

package backup

import "os"

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".shelfsafe-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
