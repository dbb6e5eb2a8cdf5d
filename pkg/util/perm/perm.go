// Package perm creates and checks owner-only files. Trace dumps can carry
// key material, so they are written -rw-------.
package perm

import (
	"os"

	"github.com/pkg/errors"
)

// OwnerOnly is the mode of every file the scanner writes.
const OwnerOnly os.FileMode = 0o600

// Check0600 verifies file permissions are -rw-------
func Check0600(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return errors.WithStack(err)
	}
	mode := st.Mode().Perm()
	if mode != OwnerOnly {
		return errors.Errorf("file %s permissions %o (want 0600)", path, mode)
	}
	return nil
}

// Create truncates or creates path for writing and makes sure it ends up
// owner-only, tightening an existing file if needed.
func Create(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, OwnerOnly)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	if err := f.Chmod(OwnerOnly); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "chmod %s", path)
	}
	return f, nil
}
