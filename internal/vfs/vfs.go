// Package vfs implements the in-memory filesystem behind the in-game
// terminal. Each mission builds one tree per simulated host; sessions track
// their own working directory and resolve relative paths against it.
package vfs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dohaibbur/CYBER-HERO/internal/util"
)

var (
	ErrNotFound         = errors.New("no such file or directory")
	ErrNotADirectory    = errors.New("not a directory")
	ErrIsADirectory     = errors.New("is a directory")
	ErrPermissionDenied = errors.New("permission denied")
	ErrToolLocked       = errors.New("required tool not unlocked")
)

// File is a leaf node.
type File struct {
	Name    string
	Content []byte
	Hidden  bool
	// RequiredTool, when set, must appear in the reader's unlocked tools.
	RequiredTool string
}

// Dir is an interior node. Children are owned by their parent; the tree is
// acyclic by construction.
type Dir struct {
	Name   string
	parent *Dir
	dirs   map[string]*Dir
	files  map[string]*File
}

// Entry is a directory listing row.
type Entry struct {
	Name   string
	IsDir  bool
	Hidden bool
	Size   int
}

// FS is a single rooted tree.
type FS struct {
	root *Dir
}

// New creates an empty filesystem with a root directory.
func New() *FS {
	return &FS{root: newDir("", nil)}
}

func newDir(name string, parent *Dir) *Dir {
	return &Dir{
		Name:   name,
		parent: parent,
		dirs:   make(map[string]*Dir),
		files:  make(map[string]*File),
	}
}

// MkdirAll creates the directory at path, creating parents as needed.
// path is absolute. Creating an existing directory is a no-op.
func (f *FS) MkdirAll(path string) error {
	parts, err := splitAbs(path)
	if err != nil {
		return err
	}
	cur := f.root
	for _, p := range parts {
		if _, exists := cur.files[p]; exists {
			return fmt.Errorf("mkdir %s: %w", path, ErrNotADirectory)
		}
		next, ok := cur.dirs[p]
		if !ok {
			next = newDir(p, cur)
			cur.dirs[p] = next
		}
		cur = next
	}
	return nil
}

// WriteFile creates or replaces the file at the absolute path. Parent
// directories are created as needed.
func (f *FS) WriteFile(path string, file File) error {
	parts, err := splitAbs(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("write %s: %w", path, ErrIsADirectory)
	}
	dirParts, name := parts[:len(parts)-1], parts[len(parts)-1]
	if err := f.MkdirAll("/" + strings.Join(dirParts, "/")); err != nil {
		return err
	}
	dir, err := f.lookupDir(dirParts)
	if err != nil {
		return err
	}
	if _, exists := dir.dirs[name]; exists {
		return fmt.Errorf("write %s: %w", path, ErrIsADirectory)
	}
	file.Name = name
	dir.files[name] = &file
	return nil
}

// Resolve canonicalizes path against cwd and reports what it names.
// The returned path is absolute and clean; isDir reports the node kind.
func (f *FS) Resolve(path, cwd string) (abs string, isDir bool, err error) {
	parts, err := f.canonical(path, cwd)
	if err != nil {
		return "", false, err
	}
	abs = "/" + strings.Join(parts, "/")
	if _, err := f.lookupDir(parts); err == nil {
		return abs, true, nil
	}
	if _, err := f.lookupFile(parts); err == nil {
		return abs, false, nil
	}
	return "", false, fmt.Errorf("%s: %w", path, ErrNotFound)
}

// List returns the entries of the directory at path resolved against cwd.
// Directories sort before files; each group is in lexical order. Hidden
// entries are included only when showHidden is set.
func (f *FS) List(path, cwd string, showHidden bool) ([]Entry, error) {
	parts, err := f.canonical(path, cwd)
	if err != nil {
		return nil, err
	}
	dir, err := f.lookupDir(parts)
	if err != nil {
		if _, ferr := f.lookupFile(parts); ferr == nil {
			return nil, fmt.Errorf("%s: %w", path, ErrNotADirectory)
		}
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	var entries []Entry
	for name := range dir.dirs {
		entries = append(entries, Entry{Name: name, IsDir: true})
	}
	for name, file := range dir.files {
		if file.Hidden && !showHidden {
			continue
		}
		entries = append(entries, Entry{
			Name:   name,
			Hidden: file.Hidden,
			Size:   len(file.Content),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Read returns the content of the file at path resolved against cwd.
// unlockedTools gates files carrying a RequiredTool.
func (f *FS) Read(path, cwd string, unlockedTools []string) ([]byte, error) {
	parts, err := f.canonical(path, cwd)
	if err != nil {
		return nil, err
	}
	file, err := f.lookupFile(parts)
	if err != nil {
		if _, derr := f.lookupDir(parts); derr == nil {
			return nil, fmt.Errorf("%s: %w", path, ErrIsADirectory)
		}
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if file.RequiredTool != "" && !util.Contains(unlockedTools, file.RequiredTool) {
		return nil, fmt.Errorf("%s: %w (%s)", path, ErrToolLocked, file.RequiredTool)
	}
	return file.Content, nil
}

// Stat returns the file node at path without reading it.
func (f *FS) Stat(path, cwd string) (*File, error) {
	parts, err := f.canonical(path, cwd)
	if err != nil {
		return nil, err
	}
	file, err := f.lookupFile(parts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return file, nil
}

// ChangeDir validates that path names a directory and returns its absolute
// clean form, for use as a session's new cwd.
func (f *FS) ChangeDir(path, cwd string) (string, error) {
	parts, err := f.canonical(path, cwd)
	if err != nil {
		return "", err
	}
	if _, err := f.lookupDir(parts); err != nil {
		if _, ferr := f.lookupFile(parts); ferr == nil {
			return "", fmt.Errorf("%s: %w", path, ErrNotADirectory)
		}
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return "/" + strings.Join(parts, "/"), nil
}

// canonical resolves path against cwd into clean root-relative components.
// "." and ".." are interpreted lexically; ".." at root stays at root.
func (f *FS) canonical(path, cwd string) ([]string, error) {
	if path == "" {
		path = "."
	}
	var base []string
	if !strings.HasPrefix(path, "/") {
		var err error
		base, err = splitAbs(cwd)
		if err != nil {
			return nil, err
		}
	}
	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(base) > 0 {
				base = base[:len(base)-1]
			}
		default:
			base = append(base, part)
		}
	}
	return base, nil
}

func splitAbs(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%s: not an absolute path", path)
	}
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p == "" || p == "." {
			continue
		}
		if p == ".." {
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
			continue
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func (f *FS) lookupDir(parts []string) (*Dir, error) {
	cur := f.root
	for _, p := range parts {
		next, ok := cur.dirs[p]
		if !ok {
			return nil, ErrNotFound
		}
		cur = next
	}
	return cur, nil
}

func (f *FS) lookupFile(parts []string) (*File, error) {
	if len(parts) == 0 {
		return nil, ErrNotFound
	}
	dir, err := f.lookupDir(parts[:len(parts)-1])
	if err != nil {
		return nil, err
	}
	file, ok := dir.files[parts[len(parts)-1]]
	if !ok {
		return nil, ErrNotFound
	}
	return file, nil
}
