// Package waypoint executes workflows defined as directed graphs of tool
// steps connected by plain and conditional edges
package waypoint

const (
	// Name is the service name reported in logs and health responses
	Name = "waypoint"

	// Version is the current release of the engine
	Version = "0.1.0"
)
