package sizediff

import (
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/spf13/afero"
)

// FileEntry is one regular file or symlink found under a tree root.
// Entries are immutable once produced by ListTree.
type FileEntry struct {
	// Path is the tree-relative, slash-separated path.
	Path    string      `json:"path"`
	// AbsPath is the path on the lister's filesystem.
	AbsPath string      `json:"-"`
	Size    int64       `json:"size"`
	Mode    os.FileMode `json:"mode"`

	IsSymlink bool `json:"isSymlink,omitempty"`
	IsRegular bool `json:"isRegular,omitempty"`
	// LinkTarget is the tree-relative path a symlink finally resolves to.
	LinkTarget string `json:"linkTarget,omitempty"`
}

// FileTree is the flat listing of one root, in walk (lexical) order.
type FileTree struct {
	Root    string
	Entries []*FileEntry
	index   map[string]*FileEntry
}

// Lookup returns the entry at the tree-relative path.
func (t *FileTree) Lookup(rel string) (*FileEntry, bool) {
	e, ok := t.index[rel]
	return e, ok
}

// Regular returns the regular files of the tree in listing order.
func (t *FileTree) Regular() []*FileEntry {
	files := make([]*FileEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.IsRegular {
			files = append(files, e)
		}
	}
	return files
}

// ListTree walks root on fs and returns every regular file and symlink.
// Directories are traversed, not emitted. Symlinks whose target cannot be
// resolved inside the tree are skipped. An unreadable root is an *IOError;
// unreadable entries below it are skipped.
func ListTree(fs afero.Fs, root string) (*FileTree, error) {
	tree := &FileTree{
		Root:  root,
		index: make(map[string]*FileEntry),
	}

	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if p == root {
				return &IOError{Op: "list", Path: root, Err: err}
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return &IOError{Op: "list", Path: p, Err: err}
		}
		rel = filepath.ToSlash(rel)

		entry := &FileEntry{
			Path:    rel,
			AbsPath: p,
			Size:    info.Size(),
			Mode:    info.Mode(),
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, ok := resolveLink(fs, root, rel)
			if !ok {
				return nil
			}
			entry.IsSymlink = true
			entry.LinkTarget = target
		case info.Mode().IsRegular():
			entry.IsRegular = true
		default:
			// devices, fifos and sockets carry no size worth comparing
			return nil
		}

		tree.Entries = append(tree.Entries, entry)
		tree.index[rel] = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tree, nil
}

// resolveLink follows the symlink at rel to the canonical tree-relative path
// of the non-link it designates. Every path component is resolved inside
// root, one at a time, as if root were the filesystem root: absolute targets
// start over at root and ".." never climbs above it. It reports false when
// the chain is broken or loops.
func resolveLink(fs afero.Fs, root, rel string) (string, bool) {
	links, ok := newLinkFs(fs)
	if !ok {
		return "", false
	}

	resolved, err := securejoin.SecureJoinVFS(root, filepath.FromSlash(rel), links)
	if err != nil {
		return "", false
	}
	info, err := links.Lstat(resolved)
	if err != nil || info.Mode()&os.ModeSymlink != 0 {
		return "", false
	}

	target, err := filepath.Rel(root, resolved)
	if err != nil || target == "." {
		return "", false
	}
	return filepath.ToSlash(target), true
}

// linkFs exposes the symlink support of an afero filesystem as a
// securejoin.VFS.
type linkFs struct {
	lstater afero.Lstater
	reader  afero.LinkReader
}

func newLinkFs(fs afero.Fs) (linkFs, bool) {
	lstater, ok := fs.(afero.Lstater)
	if !ok {
		return linkFs{}, false
	}
	reader, ok := fs.(afero.LinkReader)
	if !ok {
		return linkFs{}, false
	}
	return linkFs{lstater: lstater, reader: reader}, true
}

func (l linkFs) Lstat(name string) (os.FileInfo, error) {
	info, _, err := l.lstater.LstatIfPossible(name)
	return info, err
}

func (l linkFs) Readlink(name string) (string, error) {
	return l.reader.ReadlinkIfPossible(name)
}

var _ securejoin.VFS = linkFs{}
