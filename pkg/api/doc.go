// Package api defines the core data types for the workflow engine
//
// This package contains the shared types used across the engine,
// including workflow and step definitions, reference expressions,
// run results, observer events, and the error taxonomy
package api
