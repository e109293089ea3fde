package opcua

import (
	"context"
	"fmt"
	"io"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
)

// Browse connects to endpoint and writes one line per child of the Objects
// folder: its node id and browse name.
func Browse(ctx context.Context, endpoint string, opts Options, w io.Writer) error {
	conn, err := opcua.NewClient(endpoint, opts.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", endpoint, err)
	}
	defer conn.Close(ctx)

	objects := conn.Node(ua.NewNumericNodeID(0, id.ObjectsFolder))
	children, err := objects.Children(ctx, id.HierarchicalReferences, ua.NodeClassAll)
	if err != nil {
		return fmt.Errorf("browse objects folder: %w", err)
	}

	fmt.Fprintf(w, "Objects node has %d children\n", len(children))
	for _, child := range children {
		name, err := child.BrowseName(ctx)
		if err != nil {
			fmt.Fprintf(w, "%s\t<%v>\n", child.ID, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", child.ID, name.Name)
	}
	return nil
}
