// Package api defines the core data types shared across the workflow engine
//
// This package contains graph definitions, workflow state, run records,
// execution log entries, run events, and HTTP messages
package api
