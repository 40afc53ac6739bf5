package models

import "time"

// SnapshotVersion is the format version written into snapshot metadata.
const SnapshotVersion = "1.0.0"

// SnapshotMetadata describes an exported snapshot.
type SnapshotMetadata struct {
	ExportedAt  time.Time `json:"exportedAt"`
	Version     string    `json:"version"`
	RecordCount int       `json:"recordCount"`
}

// Snapshot is the full-backup format: every collection's records plus the
// settings map and a metadata block. The JSON shape is a compatibility
// contract between versions.
type Snapshot struct {
	Collections map[Collection][]Record `json:"collections"`
	Settings    map[string]string       `json:"settings"`
	Metadata    SnapshotMetadata        `json:"metadata"`
}
