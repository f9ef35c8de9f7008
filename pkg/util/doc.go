// Package util provides common utility functions and data structures
//
// This package includes the generic set implementation used by the
// planner and scheduler for dependency bookkeeping
package util
