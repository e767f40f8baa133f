package api

import (
	"github.com/waypost/waypost/pkg/nodeid"
)

// parseNodeRef interprets a request identifier as either a bare UUID or
// an encoded global ID. The returned type name is empty for bare UUIDs;
// for global IDs it carries the type the caller asked for.
func parseNodeRef(raw string) (nodeid.ID, string, error) {
	if id, err := nodeid.ParseID(raw); err == nil {
		return id, "", nil
	}

	gid, err := nodeid.DecodeGlobalID(raw)
	if err != nil {
		return nodeid.ID{}, "", err
	}
	return gid.ID(), gid.TypeName(), nil
}
