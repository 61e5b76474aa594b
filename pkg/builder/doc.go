// Package builder provides a Go API for defining graphs, starting runs and
// serving HTTP tools against a waypoint server
//
// Graphs are assembled with immutable builders and sent to the server with
// a Client. ToolServer exposes tool.Func implementations over the protocol
// the engine's HTTP tools speak
package builder
