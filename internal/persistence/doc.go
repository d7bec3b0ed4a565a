// Package persistence stores command catalog snapshots on disk.
//
// A snapshot is an ordered list of records. The codec is chosen from the
// file extension (.xml, .yaml/.yml, .toml, .json/.jsonc, .cbor). Writes go
// through a temp file and rename so a failed save never leaves a torn
// snapshot behind. Record ids are not persisted.
package persistence
