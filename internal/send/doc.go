// Package send turns a catalog entry into a transmitted frame.
//
// The pipeline decodes the entry's hex fields, assembles the frame, writes
// it to the record sink and hands it to the transport. Every failure is
// reported once to the error sink and returned; the catalog is never
// touched. Sends are serialized: one frame is in flight at a time.
package send
