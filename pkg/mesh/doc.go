// Package mesh defines the indexed triangle mesh that flows through the
// preparation pipeline, along with its derived geometric and topological
// properties (bounds, volume, watertightness, bodies, boundary loops).
// Properties are recomputed on every call; nothing is cached, so a mesh
// may be freely mutated between calls.
package mesh
