// Package wire converts index snapshots to the JSON formats served to
// Storybook clients.
//
// v4 is the canonical format. v3 renames title to kind and name to story
// and adds a parameters block; v3 compatibility mode additionally drops
// docs entries. Go maps do not keep insertion order, so both formats encode
// their entries object by hand in snapshot order.
//
// Conversions never modify the snapshot and are safe to call concurrently.
package wire
