package mirror

import (
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/afero"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

var Logger = logger.GetLogger("mirror")

// Mirror writes the latest known copy of every document below a local root directory.
// Files are stored by their full physical path and indented for reading by operators.
type Mirror struct {
	fs   afero.Fs
	root string
}

// New creates a mirror rooted at root on fs
func New(fs afero.Fs, root string) *Mirror {
	return &Mirror{fs: fs, root: root}
}

// Root returns the local directory of the mirror
func (m *Mirror) Root() string {
	return m.root
}

// local maps a physical path to its file below root, escaping paths are rejected
func (m *Mirror) local(p string) (string, bool) {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return "", false
	}
	return filepath.Join(m.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), true
}

// Save writes doc to the mirror file of p
func (m *Mirror) Save(p string, doc remote.Document) error {
	file, ok := m.local(p)
	if !ok {
		return os.ErrInvalid
	}
	if err := m.fs.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(m.fs, file, doc.Indent(), 0o644)
}

// Remove deletes the mirror file of p. A missing file is not an error.
func (m *Mirror) Remove(p string) error {
	file, ok := m.local(p)
	if !ok {
		return os.ErrInvalid
	}
	if err := m.fs.Remove(file); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Files returns the physical paths of all mirrored documents, sorted.
// Hidden files are ignored.
func (m *Mirror) Files() ([]string, error) {
	var files []string
	err := afero.Walk(m.fs, m.root, func(file string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		// hidden files belong to the store itself (e.g. the metadata file)
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(m.root, file)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Vacuum removes every mirrored document for which keep returns false.
// It returns the removed physical paths.
func (m *Mirror) Vacuum(keep func(p string) bool) ([]string, error) {
	files, err := m.Files()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, p := range files {
		if keep(p) {
			continue
		}
		if err := m.Remove(p); err != nil {
			Logger.Warningf("Failed to remove orphaned mirror file %s: %v", p, err)
			continue
		}
		removed = append(removed, p)
	}
	if len(removed) > 0 {
		Logger.Infof("Removed %d orphaned mirror files", len(removed))
	}
	return removed, nil
}
