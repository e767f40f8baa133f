// Package nodeid provides type-safe node identification for Waypost.
//
// This package implements the opaque global ID scheme used by the node
// resolution API, pairing a stable UUID with the display type name of the
// entity it identifies.
//
// # Core Concepts
//
//  1. ID: Stable, globally unique node identifier. This is the primary key
//     value of the underlying record and persists across view rebuilds.
//
//  2. GlobalID: Fully-qualified node reference containing the display type
//     name and the node ID, serialized as an opaque token.
//
// # Wire Format
//
// A GlobalID serializes to standard base64 over "TypeName:uuid":
//
//	g, _ := nodeid.NewGlobalID("User", nodeid.MustParseID("550e8400-e29b-41d4-a716-446655440000"))
//	token := g.Encode() // "VXNlcjo1NTBlODQwMC1lMjliLTQxZDQtYTcxNi00NDY2NTU0NDAwMDA="
//
//	back, err := nodeid.DecodeGlobalID(token)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Decoding splits on the first colon, so type names may not contain ":".
// Callers should treat the encoded form as opaque; only this package
// understands its layout.
//
// # Database Integration
//
// ID implements sql.Scanner and driver.Valuer for direct use in models:
//
//	type Row struct {
//	    ID nodeid.ID `gorm:"type:uuid;primaryKey"`
//	}
package nodeid
