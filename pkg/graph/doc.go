// Package graph provides the wire types for forum hierarchy graphs.
//
// This package defines the canonical JSON format consumed from graph files and
// handed to the external force-graph renderer, used for files, API responses,
// graph stores and caching.
//
// # Core Types
//
//   - [Graph]: Node-link container with "nodes" and "links" arrays
//   - [Node]: A server, category, channel, thread or message
//   - [Link]: A directed relation, hierarchical ("parent") or cross-referencing ("reply")
//   - [Endpoint]: A link end, decoded from a raw id or a resolved node object
//
// # Graph Serialization
//
// Graphs use the force-graph node-link JSON format:
//
//	{
//	  "nodes": [{"id": "srvr-1", "type": "server", "level": 0}],
//	  "links": [{"source": "srvr-1", "target": "cat-1", "type": "parent"}]
//	}
//
// The renderer rewrites link endpoints into node objects once it has resolved
// them. [Endpoint] accepts both shapes on input and always writes the id:
//
//	{"source": {"id": "srvr-1", "name": "..."}, "target": "cat-1"}
//
// Common operations:
//
//	g, _ := graph.ReadGraphFile("graph_data.json") // File → Graph
//	graph.WriteGraphFile(g, "visible.json")        // Graph → File
//	data, _ := graph.MarshalGraph(g)               // Graph → []byte
//	parsed, _ := graph.UnmarshalGraph(data)        // []byte → Graph
//
// # Validation
//
// Reading validates node identity (non-empty, unique). Link endpoints are not
// checked here: a link referencing a missing node is reported, and skipped,
// by the visibility index rather than rejected at decode time.
//
// # Concurrency
//
// All functions are safe for concurrent reads but not concurrent writes.
package graph
