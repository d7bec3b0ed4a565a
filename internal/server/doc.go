// Package server owns the operator HTTP API.
//
// It is the headless replacement for the desktop shell's catalog editor and
// send buttons: list and edit commands, preview and send frames, read the
// record log, persist the catalog. Send failures come back as JSON errors
// and are also written to the record log through the pipeline's error sink.
package server
