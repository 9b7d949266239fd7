package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"qrewrite/internal/rule"
)

// Tree dumps a rule tree, children indented two spaces inside their
// composite:
//
//	Default<
//	  BasicDecompose<
//	    CPDecompose<>
//	  >
//	>
func Tree(r rule.Rule, opts ...Option) string {
	if r == nil {
		return ""
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	st := DefaultStyles(lipgloss.DefaultRenderer())
	if o.styles != nil {
		st = *o.styles
	}

	var lines []string
	var open []int
	closeTo := func(depth int) {
		for len(open) > 0 && open[len(open)-1] >= depth {
			d := open[len(open)-1]
			open = open[:len(open)-1]
			lines = append(lines, strings.Repeat("  ", d)+">")
		}
	}
	for depth, n := range rule.Walk(r) {
		closeTo(depth)
		indent := strings.Repeat("  ", depth)
		if n.Children() == nil {
			lines = append(lines, indent+st.Dim.Render(n.Name())+"<>")
			continue
		}
		lines = append(lines, indent+st.Rule.Render(n.Name())+"<")
		open = append(open, depth)
	}
	closeTo(0)
	return strings.Join(lines, "\n")
}
