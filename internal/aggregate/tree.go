package aggregate

import (
	"slices"
	"strings"
)

// Node is an entry in the directory tree of included files.
type Node struct {
	Name     string
	IsDir    bool
	Children []*Node
}

// BuildTree arranges files under a root node called rootName. Directories
// are created from the slash-separated relative paths, so only directories
// that hold an included file appear.
func BuildTree(rootName string, files []File) *Node {
	root := &Node{Name: rootName, IsDir: true}
	dirs := map[string]*Node{"": root}

	for _, f := range files {
		parent := root
		segments := strings.Split(f.Rel, "/")
		for i, seg := range segments[:len(segments)-1] {
			key := strings.Join(segments[:i+1], "/")
			dir, ok := dirs[key]
			if !ok {
				dir = &Node{Name: seg, IsDir: true}
				dirs[key] = dir
				parent.Children = append(parent.Children, dir)
			}
			parent = dir
		}
		parent.Children = append(parent.Children, &Node{Name: segments[len(segments)-1]})
	}

	sortChildren(root)
	return root
}

// sortChildren orders every level by name, byte-wise.
func sortChildren(node *Node) {
	slices.SortFunc(node.Children, func(a, b *Node) int { return strings.Compare(a.Name, b.Name) })
	for _, child := range node.Children {
		sortChildren(child)
	}
}

// String draws the tree with box-drawing connectors.
func (n *Node) String() string {
	var b strings.Builder
	b.WriteString(n.Name)
	b.WriteString("\n")
	writeChildren(&b, n.Children, "")
	return b.String()
}

func writeChildren(b *strings.Builder, children []*Node, prefix string) {
	for i, node := range children {
		connector, next := "├── ", prefix+"│   "
		if i == len(children)-1 {
			connector, next = "└── ", prefix+"    "
		}
		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(node.Name)
		b.WriteString("\n")
		if node.IsDir {
			writeChildren(b, node.Children, next)
		}
	}
}
