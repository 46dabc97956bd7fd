package ffgraph

import (
	"fmt"
	"io"
	"strings"
)

// String renders the subgraph as one line per vertex in topological order,
// in the form "Z2 <- MUL( X0, Z1 )".
func (sg *Subgraph) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "subgraph: %d leaves, %d operations\n", len(sg.Leaves), len(sg.Ops))
	for _, op := range sg.Ops {
		outs := make([]string, len(op.Out))
		for i, v := range op.Out {
			outs[i] = v.String()
		}
		ins := make([]string, len(op.In))
		for i, v := range op.In {
			ins[i] = v.String()
		}
		name := op.Name()
		if op.Code == OpPow || op.Code == OpCheb {
			name = fmt.Sprintf("%s[%d]", name, op.Param)
		}
		fmt.Fprintf(&b, "%s <- %s( %s )\n", strings.Join(outs, ", "), name, strings.Join(ins, ", "))
	}
	return b.String()
}

// DOT writes a graphviz rendering of the subgraph: one box per operation
// vertex, one ellipse per node, edges ordered input to output.
func (sg *Subgraph) DOT(w io.Writer, name string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	for _, v := range sg.Leaves {
		shape := "ellipse"
		if v.isCst {
			shape = "plaintext"
		}
		fmt.Fprintf(&b, "  n%d [label=%q, shape=%s];\n", v.id, v.String(), shape)
	}
	for i, op := range sg.Ops {
		label := op.Name()
		if op.Code == OpPow || op.Code == OpCheb {
			label = fmt.Sprintf("%s[%d]", label, op.Param)
		}
		fmt.Fprintf(&b, "  op%d [label=%q, shape=box];\n", i, label)
		for _, v := range op.In {
			fmt.Fprintf(&b, "  n%d -> op%d;\n", v.id, i)
		}
		for _, v := range op.Out {
			fmt.Fprintf(&b, "  n%d [label=%q, shape=ellipse];\n", v.id, v.String())
			fmt.Fprintf(&b, "  op%d -> n%d;\n", i, v.id)
		}
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}
