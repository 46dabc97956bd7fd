package ffgraph_test

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/factolab/facto/ffgraph"
)

func renderGraph(t *testing.T) *ffgraph.Subgraph {
	t.Helper()
	g := ffgraph.New()
	x, y := g.NewVar(), g.NewVar()
	e := ev(t)
	// f = exp(x*y) + y
	f := e(e(e(x.Mul(y)).Exp()).Add(y))
	sg, err := g.Subgraph(f)
	require.NoError(t, err)
	return sg
}

func TestSubgraph_TextRender(t *testing.T) {
	sg := renderGraph(t)
	gold := goldie.New(t)
	gold.Assert(t, "subgraph_text", []byte(sg.String()))
}

func TestSubgraph_DOTRender(t *testing.T) {
	sg := renderGraph(t)
	var buf bytes.Buffer
	require.NoError(t, sg.DOT(&buf, "expr"))
	gold := goldie.New(t)
	gold.Assert(t, "subgraph_dot", buf.Bytes())
}
