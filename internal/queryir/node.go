package queryir

import "strings"

// Node is one element of a parsed statement.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	queryNode() // Marker method - seals interface to this package
}

// JoinMode controls how a Group's children are rendered.
type JoinMode int

const (
	// Spaced joins children with a single space.
	Spaced JoinMode = iota
	// Tight concatenates children with no separator.
	Tight
)

// String returns the mode name for debugging.
func (m JoinMode) String() string {
	switch m {
	case Spaced:
		return "spaced"
	case Tight:
		return "tight"
	default:
		return "unknown"
	}
}

// Token is a single lexical token as it appears in canonical output.
// Keywords are already upper-cased; identifiers and literals keep the
// text the user wrote.
type Token string

func (Token) queryNode() {}

// Group is a sequence of nodes rendered with one join mode.
type Group struct {
	Mode  JoinMode
	Items []Node
}

func (*Group) queryNode() {}

// Call is a function invocation rendered as name(arg, arg).
//
// Args are rendered independently and joined with ", ". A call with no
// arguments renders as name().
type Call struct {
	Name string
	Args []Node
}

func (*Call) queryNode() {}

// Table is a table reference inside a FROM or JOIN clause.
//
// Items hold the tokens as written (namespace, dot, name, AS, alias, and
// any INDEXED BY suffix) and render Spaced. Ref is the structured view of
// the same reference.
type Table struct {
	Ref   TableRef
	Items []Node
}

func (*Table) queryNode() {}

// SpacedGroup builds a Spaced group, dropping nil items.
func SpacedGroup(items ...Node) *Group {
	return &Group{Mode: Spaced, Items: compact(items)}
}

// TightGroup builds a Tight group, dropping nil items.
func TightGroup(items ...Node) *Group {
	return &Group{Mode: Tight, Items: compact(items)}
}

func compact(items []Node) []Node {
	out := make([]Node, 0, len(items))
	for _, n := range items {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Render rebuilds the canonical text of n.
func Render(n Node) string {
	var b strings.Builder
	render(&b, n)
	return b.String()
}

func render(b *strings.Builder, n Node) {
	switch node := n.(type) {
	case nil:
	case Token:
		b.WriteString(string(node))
	case *Group:
		sep := ""
		if node.Mode == Spaced {
			sep = " "
		}
		first := true
		for _, item := range node.Items {
			text := Render(item)
			if text == "" {
				continue
			}
			if !first {
				b.WriteString(sep)
			}
			b.WriteString(text)
			first = false
		}
	case *Call:
		b.WriteString(node.Name)
		b.WriteByte('(')
		for i, arg := range node.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			render(b, arg)
		}
		b.WriteByte(')')
	case *Table:
		render(b, &Group{Mode: Spaced, Items: node.Items})
	}
}
