package ext2

import (
	"fmt"
	"strings"
)

func splitComponents(path string) []string {
	raw := strings.Split(path, "/")
	components := make([]string, 0, len(raw))
	for _, part := range raw {
		if part != "" {
			components = append(components, part)
		}
	}
	return components
}

// Resolve walks path to its terminal inode: absolute paths (leading `/`)
// start from the root inode, relative paths from the caller's cwd.
// `.` and `..` resolve against the directory being walked into; `..` at
// root resolves to root. A non-directory intermediate component fails
// with ErrNotADirectory.
func (fs *FileSystem) Resolve(path string) (Ino, error) {
	if err := fs.RequireAuthenticated(); err != nil {
		return 0, err
	}

	current := fs.Identity.Cwd
	if strings.HasPrefix(path, "/") {
		current = RootIno
	}

	for _, component := range splitComponents(path) {
		next, err := fs.resolveStep(current, component)
		if err != nil {
			return 0, fmt.Errorf("resolving `%s`: %w", path, err)
		}
		if next == 0 {
			return 0, fmt.Errorf("resolving `%s`: %w", path, ErrNotFound{Path: path})
		}
		current = next
	}
	return current, nil
}

func (fs *FileSystem) resolveStep(dirIno Ino, component string) (Ino, error) {
	dir, err := fs.GetInode(dirIno)
	if err != nil {
		return 0, err
	}
	if !dir.IsDir() {
		return 0, ErrNotADirectory{Ino: dirIno}
	}
	return fs.Lookup(&dir, component)
}

// SplitParent resolves path to a (parent inode, last component) pair
// without requiring the last component itself to exist — the basis for
// create/mkdir, which need the parent directory but not the target.
// Parent is 0 if any intermediate component is missing; a non-directory
// intermediate component fails with ErrNotADirectory.
func (fs *FileSystem) SplitParent(path string) (Ino, string, error) {
	if err := fs.RequireAuthenticated(); err != nil {
		return 0, "", err
	}

	components := splitComponents(path)
	if len(components) == 0 {
		return 0, "", fmt.Errorf("splitting `%s`: %w", path, ErrInvalidArgument{Reason: "empty path"})
	}

	current := fs.Identity.Cwd
	if strings.HasPrefix(path, "/") {
		current = RootIno
	}

	last := components[len(components)-1]
	for _, component := range components[:len(components)-1] {
		next, err := fs.resolveStep(current, component)
		if err != nil {
			return 0, "", fmt.Errorf("splitting `%s`: %w", path, err)
		}
		if next == 0 {
			return 0, last, nil
		}
		current = next
	}
	parent, err := fs.GetInode(current)
	if err != nil {
		return 0, "", fmt.Errorf("splitting `%s`: %w", path, err)
	}
	if !parent.IsDir() {
		return 0, "", fmt.Errorf("splitting `%s`: %w", path, ErrNotADirectory{Ino: current})
	}
	return current, last, nil
}
