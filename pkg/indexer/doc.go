// Package indexer defines the extractor contract used by the index generator.
//
// An Indexer claims files through a path predicate and turns one file into
// zero or more IndexInput values. The generator owns everything else: title
// derivation, id computation, tag assembly and docs attachment. Extractors
// never see or mutate generator state.
//
// # Resolution
//
// A Registry holds indexers in registration order. Resolve returns the first
// indexer whose Test accepts the path; there is no fallback to later
// indexers when extraction fails.
//
//	reg := indexer.NewRegistry()
//	reg.Register(csf.New())
//	reg.Register(mdx.New())
//
//	ix, ok := reg.Resolve("./src/Button.stories.tsx")
//
// # Thread Safety
//
// Registry is safe for concurrent use. Indexer implementations must be safe
// for concurrent Extract calls on different paths.
package indexer
