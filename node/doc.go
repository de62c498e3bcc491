// Package node runs the networking side of a consensus node: it listens
// for length-prefixed wire frames, registers the node with the hub,
// creates a consensus instance per system id on demand, and routes every
// incoming envelope to its instance as a perfect-link delivery.
//
// A node hosts many instances at once; each instance runs its own
// dispatcher and the node never touches abstraction state directly.
package node
