// Package observability owns process metrics and HTTP request telemetry.
//
// Counters cover frames handed to the transport, rejected sends and
// catalog load/save outcomes. Registration is lazy and happens once.
package observability
