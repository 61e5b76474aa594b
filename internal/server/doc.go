// Package server implements the HTTP API of the workflow service
//
// This package provides REST endpoints for managing graphs and runs, health
// and tool listings, and WebSocket streams of run events
package server
