package queryir

import "strings"

// TableRef is one syntactic occurrence of a table in a statement.
// Namespace and Alias are empty when not written.
type TableRef struct {
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
	Alias     string `json:"alias,omitempty"`
}

// String renders the reference as ns.name AS alias, omitting absent parts.
func (r TableRef) String() string {
	var b strings.Builder
	if r.Namespace != "" {
		b.WriteString(r.Namespace)
		b.WriteByte('.')
	}
	b.WriteString(r.Name)
	if r.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(r.Alias)
	}
	return b.String()
}

// Metadata describes what a statement touches.
type Metadata struct {
	// Tables lists every table reference in left-to-right textual order,
	// depth first through subqueries. Repeats are kept.
	Tables []TableRef `json:"tables"`
}

// Tables walks n and returns every table reference it contains.
func Tables(n Node) []TableRef {
	var refs []TableRef
	Walk(n, func(node Node) {
		if t, ok := node.(*Table); ok {
			refs = append(refs, t.Ref)
		}
	})
	return refs
}

// Walk visits n and all of its descendants in pre-order.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}
	visit(n)
	switch node := n.(type) {
	case *Group:
		for _, item := range node.Items {
			Walk(item, visit)
		}
	case *Call:
		for _, arg := range node.Args {
			Walk(arg, visit)
		}
	case *Table:
		for _, item := range node.Items {
			Walk(item, visit)
		}
	}
}

// Statement is a parsed SELECT statement.
type Statement struct {
	Root Node
}

// Canonical returns the canonical text of the statement.
func (s *Statement) Canonical() string {
	return Render(s.Root)
}

// Metadata returns the statement's table references.
func (s *Statement) Metadata() Metadata {
	tables := Tables(s.Root)
	if tables == nil {
		tables = []TableRef{}
	}
	return Metadata{Tables: tables}
}
