// Package nodeview synthesizes and queries the unified node view.
//
// The node view is a single relation, one row per live entity record,
// projected from the per-entity read views named in the entity registry.
// It gives the node resolution API one place to answer "what is the record
// behind this ID" without knowing which entity type owns it.
//
// # Components
//
//   - RegistryReader loads the registry rows that participate in node
//     resolution and normalizes them into EntityDescriptors.
//
//   - BuildViewSelect and BuildViewDDL turn a descriptor list into view
//     DDL. They are pure functions: same descriptors in, same SQL out.
//
//   - Manager owns the view lifecycle: it rebuilds the view from the
//     current registry snapshot, maintains best-effort indexes, tracks a
//     generation counter, and reports health.
//
//   - Resolver answers point and batch lookups against the view.
//     CachedResolver wraps it with a generation-keyed read-through cache.
//
//   - TypeRegistry hydrates raw node payloads into registered Go types.
//
//   - Discoverer scans a live database for naming-convention matches and
//     proposes registry candidates.
//
// Rebuilds are serialized in process. Registry mutations do not rebuild
// the view by themselves; something must call Manager.Rebuild, typically
// the server's registry-change listener or an operator command.
package nodeview
