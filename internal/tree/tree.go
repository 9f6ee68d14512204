package tree

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// NodeType discriminates files from directories.
type NodeType string

const (
	TypeFile      NodeType = "file"
	TypeDirectory NodeType = "directory"
)

// ErrMalformedTree is returned when a server-supplied tree is missing
// required fields or is otherwise inconsistent.
var ErrMalformedTree = errors.New("malformed file tree")

// FileNode is one entry in an uploaded project. The tree is plain data:
// transient UI state (expansion, selection) lives in overlay maps owned
// by the explorer, never on the node itself.
type FileNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     NodeType    `json:"type"`
	Size     int64       `json:"size,omitempty"`
	Children []*FileNode `json:"children,omitempty"`
}

// IsDir reports whether the node is a directory.
func (n *FileNode) IsDir() bool { return n.Type == TypeDirectory }

// Build normalizes a raw decoded tree (the nested structure from
// GET /api/apps/{id}/files) into a FileNode graph. Child ordering is
// preserved exactly as the server sent it. A node missing path or type,
// carrying an unknown type, or duplicating another node's path fails the
// whole build with ErrMalformedTree.
func Build(raw map[string]any) (*FileNode, error) {
	seen := make(map[string]bool)
	root, err := buildNode(raw, seen)
	if err != nil {
		return nil, err
	}
	return root, nil
}

func buildNode(raw map[string]any, seen map[string]bool) (*FileNode, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil node", ErrMalformedTree)
	}

	p, ok := raw["path"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: node missing path", ErrMalformedTree)
	}
	ts, ok := raw["type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: node %q missing type", ErrMalformedTree, p)
	}

	nt := NodeType(ts)
	if nt != TypeFile && nt != TypeDirectory {
		return nil, fmt.Errorf("%w: node %q has unknown type %q", ErrMalformedTree, p, ts)
	}

	if seen[p] {
		return nil, fmt.Errorf("%w: duplicate path %q", ErrMalformedTree, p)
	}
	seen[p] = true

	node := &FileNode{Path: p, Type: nt}
	if name, ok := raw["name"].(string); ok && name != "" {
		node.Name = name
	} else {
		node.Name = path.Base(p)
	}
	if size, ok := raw["size"].(float64); ok {
		node.Size = int64(size)
	}

	if nt == TypeFile {
		return node, nil
	}

	// Directories may have an empty or absent children list.
	switch children := raw["children"].(type) {
	case nil:
		node.Children = []*FileNode{}
	case []any:
		node.Children = make([]*FileNode, 0, len(children))
		for _, c := range children {
			cm, ok := c.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: child of %q is not an object", ErrMalformedTree, p)
			}
			child, err := buildNode(cm, seen)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
	default:
		return nil, fmt.Errorf("%w: children of %q is not a list", ErrMalformedTree, p)
	}

	return node, nil
}

// Count returns the total number of nodes (files and directories).
func Count(n *FileNode) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += Count(c)
	}
	return total
}

// Walk visits every node depth-first in tree order. The walk stops early
// if fn returns false. depth is 0 for the root.
func Walk(n *FileNode, fn func(n *FileNode, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n *FileNode, depth int, fn func(n *FileNode, depth int) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n, depth) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, depth+1, fn) {
			return false
		}
	}
	return true
}

// Find returns the node with the given path, or nil.
func Find(root *FileNode, p string) *FileNode {
	var found *FileNode
	Walk(root, func(n *FileNode, _ int) bool {
		if n.Path == p {
			found = n
			return false
		}
		return true
	})
	return found
}

// SkipFunc decides whether an entry should be excluded from a disk scan.
// rel is slash-delimited and relative to the scan root.
type SkipFunc func(name, rel string, isDir bool) bool

// BuildDir constructs a tree from a directory on disk. Children are
// ordered directories first, then case-insensitive by name, matching the
// order the archive was laid out in by extraction. The root node's path
// is ".".
func BuildDir(dir string, skip SkipFunc) (*FileNode, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading app directory: %w", err)
	}
	return buildDirNode(dir, ".", info.Name(), skip)
}

func buildDirNode(full, rel, name string, skip SkipFunc) (*FileNode, error) {
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return &FileNode{Name: name, Path: rel, Type: TypeFile, Size: info.Size()}, nil
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		// Unreadable directories become empty rather than failing the scan.
		return &FileNode{Name: name, Path: rel, Type: TypeDirectory, Children: []*FileNode{}}, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	node := &FileNode{Name: name, Path: rel, Type: TypeDirectory, Children: []*FileNode{}}
	for _, e := range entries {
		childRel := e.Name()
		if rel != "." {
			childRel = rel + "/" + e.Name()
		}
		if skip != nil && skip(e.Name(), childRel, e.IsDir()) {
			continue
		}
		child, err := buildDirNode(filepath.Join(full, e.Name()), childRel, e.Name(), skip)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
