// Package extract wires the built-in indexers.
package extract

import (
	"github.com/Aman-CERP/storyindex/internal/extract/csf"
	"github.com/Aman-CERP/storyindex/internal/extract/mdx"
	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

// DefaultRegistry returns a registry with the CSF indexer followed by the
// MDX indexer.
func DefaultRegistry() *indexer.Registry {
	return indexer.NewRegistry(csf.New(), mdx.New())
}
