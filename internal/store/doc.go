// Package store keeps small JSON documents in flash.
//
// A Store owns one document under one namespace. The serialized form is
// written as a single record (key "store") and never grows beyond the
// store's capacity.
//
// # Lifecycle
//
// Load reads the record and decodes it. A missing or undecodable record is
// replaced by the document's default value, which is written back at once.
// Corruption is therefore healed silently; callers that care can compare
// Used against what they expect.
//
// Nothing is written back automatically. A handler that changes a document
// calls Save (or uses Merge/Update, which save on success).
//
// # Merge
//
// Merge applies a partial JSON object one level deep. Keys already present
// in the serialized document are overwritten; unknown keys are ignored.
// There is no way to delete a key.
//
// # Capacity
//
// A serialized document longer than the capacity is cut to fit and a
// warning is logged. The cut record will not decode on the next Load and
// will be reset to the default, so capacities are sized generously.
package store
