package nodeview

import (
	"github.com/waypost/waypost/pkg/models"
	"github.com/waypost/waypost/pkg/nodeid"
)

// Resolution sources reported on resolved nodes.
const (
	// SourceNodeView marks nodes resolved through a point lookup.
	SourceNodeView = "v_nodes"

	// SourceNodeViewBatch marks nodes resolved through a batch lookup.
	SourceNodeViewBatch = "v_nodes_batch"
)

// Node is one resolved record from the unified node view.
type Node struct {
	// ID is the stable identifier of the underlying record.
	ID nodeid.ID `json:"id"`

	// TypeName is the display type of the entity (e.g., "User").
	TypeName string `json:"type_name"`

	// EntityName is the internal entity name (e.g., "user").
	EntityName string `json:"entity_name"`

	// SourceTable is the physical table of record.
	SourceTable string `json:"source_table"`

	// Data is the entity payload as projected by its read view.
	Data models.JSON `json:"data"`

	// CreatedAt and UpdatedAt come from the projected row.
	CreatedAt models.Timestamp `json:"created_at"`
	UpdatedAt models.Timestamp `json:"updated_at"`

	// Source records which resolution path produced this node.
	Source string `json:"source"`
}

// GlobalID returns the global identifier for this node. Type names are
// validated at registration time, so construction cannot fail for nodes
// read from the view; anything invalid degrades to the zero GlobalID.
func (n *Node) GlobalID() nodeid.GlobalID {
	g, err := nodeid.NewGlobalID(n.TypeName, n.ID)
	if err != nil {
		return nodeid.GlobalID{}
	}
	return g
}
