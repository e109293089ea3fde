package app

import (
	"strings"

	"github.com/neekaru/opcua-gateway/internal/remote"
	"github.com/neekaru/opcua-gateway/internal/variables"
)

// NewSimulator returns an in-memory controller holding every variable of
// table at zero. Writes to a "<axis>.target" variable are mirrored to
// "<axis>.actual" so the machine appears to follow its setpoints.
func NewSimulator(table *variables.Table) *remote.Simulator {
	initial := make(map[string]float64)
	for _, b := range table.Bindings() {
		initial[b.Identifier] = 0
	}
	sim := remote.NewSimulator(initial)

	for _, b := range table.Bindings() {
		axis, ok := strings.CutSuffix(b.Name, ".target")
		if !ok {
			continue
		}
		if actual, ok := table.Lookup(axis + ".actual"); ok {
			sim.Link(b.Identifier, actual.Identifier)
		}
	}
	return sim
}
