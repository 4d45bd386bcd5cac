// Package display holds the tunable parameters handed to the force-graph
// renderer and the link-distance heuristic derived from them.
//
// A [Config] is an immutable value. Changing a parameter produces a new
// Config through [Config.With], and [Live] turns each accepted change into an
// [Event] delivered to subscribers, so renderers react to discrete updates
// instead of sharing a mutable control object.
//
// # Parameters
//
//	dag_orientation    td | bu | lr | rl | zout | zin | radialout | radialin | ""
//	arrow_length       0–100   (default 10)
//	node_size          1–4     (default 2), exponent applied to relative_size
//	particles          0–20    (default 5)
//	particle_size      0–20    (default 2)
//	particle_speed     0.001–0.1 (default 0.01)
//	link_lengths.base  0–100   (default 1)
//	link_lengths.{server,category,channel,chat,message}  0–10 (defaults 5,4,3,2,1)
//
// # Link Distance
//
// [Config.LinkDistance] computes the desired length of a link as
//
//	base × level(source) × multiplier(type(source))
//
// where the multiplier is the link length configured for the source node's
// type (threads use the "chat" length).
//
// # Files
//
// Configs load from TOML with [Load]; keys not listed above are rejected.
//
//	dag_orientation = "lr"
//	node_size = 3
//
//	[link_lengths]
//	server = 8
package display
