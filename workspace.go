package epub

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// workspace is a builder's staging directory. It mirrors the container
// layout: the staged file "OEBPS/a.xhtml" becomes the archive entry of the
// same name. The directory is created eagerly and removed by release.
type workspace struct {
	root   string
	logger *zap.Logger
}

func newWorkspace(parent string, logger *zap.Logger) (*workspace, error) {
	root, err := os.MkdirTemp(parent, "epub-build-*")
	if err != nil {
		return nil, fmt.Errorf("epub: create workspace: %w", err)
	}
	ws := &workspace{root: root, logger: logger}

	if err := ws.write("mimetype", []byte(expectedMimetype)); err != nil {
		ws.release()
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(root, "META-INF"), 0o755); err != nil {
		ws.release()
		return nil, fmt.Errorf("epub: create workspace: %w", err)
	}
	return ws, nil
}

// abs maps a container path to its location in the workspace.
func (w *workspace) abs(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// write stores data at the container path rel, creating parent directories.
func (w *workspace) write(rel string, data []byte) error {
	target := w.abs(rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("epub: stage %s: %w", rel, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("epub: stage %s: %w", rel, err)
	}
	return nil
}

// remove deletes the staged file at rel. A missing file is not an error.
func (w *workspace) remove(rel string) error {
	if err := os.Remove(w.abs(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("epub: unstage %s: %w", rel, err)
	}
	return nil
}

// exists reports whether a file is staged at rel.
func (w *workspace) exists(rel string) bool {
	info, err := os.Stat(w.abs(rel))
	return err == nil && info.Mode().IsRegular()
}

// pruneEmptyDirs removes directories left empty by removed resources,
// deepest first. META-INF is kept.
func (w *workspace) pruneEmptyDirs() error {
	var dirs []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p != w.root {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("epub: walk workspace: %w", err)
	}

	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		if dir == filepath.Join(w.root, "META-INF") {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("epub: read workspace: %w", err)
		}
		if len(entries) == 0 {
			if err := os.Remove(dir); err != nil {
				return fmt.Errorf("epub: prune workspace: %w", err)
			}
		}
	}
	return nil
}

// files returns the container paths of every staged file, sorted, with
// "mimetype" excluded.
func (w *workspace) files() ([]string, error) {
	var out []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel != "mimetype" {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("epub: walk workspace: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		// META-INF first, the way most readers expect it.
		mi, mj := strings.HasPrefix(out[i], "META-INF/"), strings.HasPrefix(out[j], "META-INF/")
		if mi != mj {
			return mi
		}
		return out[i] < out[j]
	})
	return out, nil
}

// release deletes the workspace. Failures are logged, not returned.
// release is idempotent.
func (w *workspace) release() {
	if w.root == "" {
		return
	}
	if err := os.RemoveAll(w.root); err != nil {
		w.logger.Warn("failed to remove builder workspace", zap.String("dir", w.root), zap.Error(err))
	}
	w.root = ""
}
