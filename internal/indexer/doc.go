// Package indexer builds a documentation corpus from encoded fragments.
//
// Each translation unit of a project emits one fragment per symbol it
// declares. The same symbol is usually seen by many units, so the indexer
// groups fragments by symbol id and reduces every group to one merged
// description.
//
// # Basic Usage
//
//	idx := indexer.New(log, metrics)
//
//	c, stats, err := idx.Build(ctx, indexer.DirSource{Root: "fragments"}, &indexer.Config{
//	    Workers: 8,
//	    Strict:  true,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := c.Canonicalize(); err != nil {
//	    return err
//	}
//
// # Build Pipeline
//
//  1. Collect: read every fragment from the source and group it by symbol id
//  2. Decode: decode each fragment of a group (parallel, one task per group)
//  3. Merge: merge the decoded descriptions of the group
//  4. Insert: add the merged description to the corpus
//  5. Order: sort the discovery list and check every reference resolves
//
// Fragments of a group are ordered by content before decoding so the merged
// result does not depend on the order units were compiled in.
//
// # Error Handling
//
// A group fails when one of its fragments does not decode, describes an
// unrelated symbol, or conflicts with another fragment. In strict mode any
// failure fails the whole build with types.ErrBuildFailed and no corpus is
// returned. Otherwise failed groups are logged, counted in
// Statistics.GroupsFailed and left out of the corpus.
//
// # Fragment Directories
//
// DirSource reads the layout written by WriteFragment:
//
//	<root>/<symbol id as hex>/<escaped unit name>.docs
package indexer
