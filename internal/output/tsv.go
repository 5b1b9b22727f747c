package output

import (
	"fmt"
	"strings"

	"shaker/internal/analysis"
)

// TSVGenerator emits export and import records as tab-separated rows, one
// record kind per section.
type TSVGenerator struct {
	result *analysis.Result
}

func NewTSVGenerator(result *analysis.Result) *TSVGenerator {
	return &TSVGenerator{result: result}
}

func (t *TSVGenerator) Generate() string {
	var buf strings.Builder
	g := t.result.Graph

	buf.WriteString("record\tname\tdetail\n")
	exports := g.Exports()
	for _, name := range g.ExportNames() {
		node := exports[name]
		fmt.Fprintf(&buf, "export\t%s\t%s@%d-%d\n", name, node.Kind(), node.StartByte(), node.EndByte())
	}
	for _, spec := range g.ImportSpecifiers() {
		members := g.ImportMembers(spec)
		if len(members) == 0 {
			fmt.Fprintf(&buf, "import\t%s\t*\n", spec)
			continue
		}
		fmt.Fprintf(&buf, "import\t%s\t%s\n", spec, strings.Join(members, ","))
	}
	return buf.String()
}
