package dom

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// WriteHTML serializes n and its subtree in canonical form. A root writes
// only its children.
func WriteHTML(w io.Writer, n *Node) error {
	bw := bufio.NewWriter(w)
	writeNode(bw, n)
	return bw.Flush()
}

// HTML returns the canonical serialization of n.
func HTML(n *Node) string {
	var sb strings.Builder
	_ = WriteHTML(&sb, n)
	return sb.String()
}

// Component adapts n to a templ component so a document can be embedded in
// a templ page.
func Component(n *Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return WriteHTML(w, n)
	})
}

func writeNode(w *bufio.Writer, n *Node) {
	switch n.Kind {
	case KindRoot:
		for _, c := range n.Children {
			writeNode(w, c)
		}
	case KindText:
		w.WriteString(templ.EscapeString(n.Text))
	case KindPlaceholder:
		w.WriteString("<!--placeholder-->")
	case KindElement:
		w.WriteByte('<')
		w.WriteString(n.Tag)
		for _, a := range n.Attrs() {
			w.WriteByte(' ')
			if a.Namespace != "" {
				w.WriteString(a.Namespace)
				w.WriteByte(':')
			}
			w.WriteString(a.Name)
			w.WriteString(`="`)
			w.WriteString(templ.EscapeString(a.Value))
			w.WriteByte('"')
		}
		w.WriteByte('>')
		for _, c := range n.Children {
			writeNode(w, c)
		}
		w.WriteString("</")
		w.WriteString(n.Tag)
		w.WriteByte('>')
	}
}
