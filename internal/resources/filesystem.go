package resources

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"preflight/internal/config"
	"preflight/pkg/errors"
)

const defaultDirMode = 0o755

// FileSystem brings a directory tree online. The connection probe writes and
// deletes a scratch file under the base path; initialization creates the
// base directory and configured subdirectories, applies the configured
// permission bits, and reads them back to verify the filesystem honored
// them. A mount that silently clamps permissions fails here rather than at
// first use.
type FileSystem struct {
	base
	cfg *config.FileSystemConfig

	// Replaceable for tests; filesystems that ignore chmod are hard to
	// conjure inside a test sandbox.
	chmod    func(string, fs.FileMode) error
	statMode func(string) (fs.FileMode, error)
}

// NewFileSystem creates the filesystem variant from its configuration.
func NewFileSystem(name string, cfg *config.FileSystemConfig, logger *zap.Logger) *FileSystem {
	return &FileSystem{
		base:  newBase(name, logger),
		cfg:   cfg,
		chmod: os.Chmod,
		statMode: func(path string) (fs.FileMode, error) {
			info, err := os.Stat(path)
			if err != nil {
				return 0, err
			}
			return info.Mode().Perm(), nil
		},
	}
}

func (f *FileSystem) ValidateConfiguration() error {
	if f.cfg == nil {
		return f.fail(errors.NewConfiguration("filesystem configuration is missing"))
	}
	return validateConfig(f.status, f.cfg)
}

// TestConnection verifies the base path is writable by creating and removing
// a scratch file. A base directory created for the probe is removed again;
// durable creation belongs to Initialize.
func (f *FileSystem) TestConnection(ctx context.Context) error {
	if _, err := os.Stat(f.cfg.BasePath); err != nil {
		if !os.IsNotExist(err) {
			return f.fail(errors.NewResourcef("cannot stat base path %s: %v", f.cfg.BasePath, err))
		}
		if err := os.MkdirAll(f.cfg.BasePath, f.dirMode()); err != nil {
			return f.fail(errors.NewResourcef("cannot create base path %s: %v", f.cfg.BasePath, err))
		}
		defer os.Remove(f.cfg.BasePath)
	}

	scratch, err := os.CreateTemp(f.cfg.BasePath, ".preflight-probe-*")
	if err != nil {
		return f.fail(errors.NewResourcef("base path %s is not writable: %v", f.cfg.BasePath, err))
	}
	name := scratch.Name()
	if _, err := scratch.WriteString("probe"); err != nil {
		scratch.Close()
		os.Remove(name)
		return f.fail(errors.NewResourcef("write to %s failed: %v", name, err))
	}
	if err := scratch.Close(); err != nil {
		os.Remove(name)
		return f.fail(errors.NewResourcef("close of %s failed: %v", name, err))
	}
	if err := os.Remove(name); err != nil {
		return f.fail(errors.NewResourcef("delete of %s failed: %v", name, err))
	}
	return nil
}

// Initialize creates the directory tree with the configured mode and
// verifies the permission bits actually in effect on each directory.
func (f *FileSystem) Initialize(ctx context.Context) error {
	dirs := []string{f.cfg.BasePath}
	for _, sub := range f.cfg.SubDirs {
		dirs = append(dirs, filepath.Join(f.cfg.BasePath, sub))
	}

	mode := f.dirMode()
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, mode); err != nil {
			return f.fail(errors.NewResourcef("cannot create directory %s: %v", dir, err))
		}
		// MkdirAll applies the process umask, so set the bits explicitly.
		if err := f.chmod(dir, mode); err != nil {
			return f.fail(errors.NewResourcef("cannot set permissions on %s: %v", dir, err))
		}
		got, err := f.statMode(dir)
		if err != nil {
			return f.fail(errors.NewResourcef("cannot stat %s: %v", dir, err))
		}
		if got != mode {
			return f.fail(errors.NewResourcef(
				"permission mismatch on %s: expected %04o, got %04o", dir, mode, got))
		}
	}

	f.status.AddData("base_path", f.cfg.BasePath)
	f.status.AddData("directories", len(dirs))
	f.logger.Info("directory tree ready",
		zap.String("base_path", f.cfg.BasePath),
		zap.Int("directories", len(dirs)),
	)
	return nil
}

// Close is a no-op; the directory tree outlives the process.
func (f *FileSystem) Close(ctx context.Context) error {
	return nil
}

func (f *FileSystem) dirMode() fs.FileMode {
	if f.cfg.DirMode == 0 {
		return defaultDirMode
	}
	return fs.FileMode(f.cfg.DirMode)
}
