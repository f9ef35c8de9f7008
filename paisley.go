// Package paisley is a dynamic workflow execution engine. Workflows
// arrive as data: step definitions with input mappings, conditions,
// retry policies, and fallbacks are compiled into a dependency plan
// and executed against a registry of step functions
package paisley

const (
	// Name identifies the engine in logs and user agents
	Name = "paisley"

	// Version is the engine release version
	Version = "0.1.0"
)
