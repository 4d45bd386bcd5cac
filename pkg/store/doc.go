// Package store persists named forum graphs.
//
// # Backends
//
//   - [DirStore]: one "<name>.json" file per graph in a directory, in the
//     same JSON shape read by [graph.ReadGraphFile]
//   - [MongoStore]: one document per graph with the name as _id
//
// Both validate names with [errors.ValidateGraphName] and report a missing
// graph as a NOT_FOUND coded error.
//
// # Usage
//
//	st, err := store.NewDirStore("graphs")
//	if err != nil {
//	    return err
//	}
//	g, err := st.Load(ctx, "forum")
package store
