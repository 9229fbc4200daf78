package pipeline

import (
	"os"
	"path/filepath"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hasm"
)

// DirWriter writes directory-form assembly files below Root.
type DirWriter struct {
	Root string
}

// WriteFile implements hasm.DirWriter. Names use forward slashes.
func (d DirWriter) WriteFile(name string, data []byte) error {
	path := filepath.Join(d.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var _ hasm.DirWriter = DirWriter{}

// prepareOutputDir makes dir ready to receive directory-form output.
func prepareOutputDir(dir string, force bool) error {
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		return mkdir(dir)
	case err != nil:
		return errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "read output directory")
	case len(entries) == 0:
		return nil
	case !force:
		return errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path(dir).
			Detail("output directory %s is not empty", dir).
			Build()
	}
	if err := os.RemoveAll(filepath.Join(dir, hasm.FunctionsDir)); err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "clear stale function files")
	}
	return nil
}

func mkdir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "create output directory")
	}
	return nil
}
