package store

// Store defines the interface for render record persistence.
// Implementations must be thread-safe and handle concurrent access gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the record doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRecord atomically saves the record for rec.ID, overwriting any
	// previous record with the same ID.
	SaveRecord(rec *Record) error

	// LoadRecord retrieves the record with the given ID.
	// Returns ErrNotFound if no record exists.
	LoadRecord(id string) (*Record, error)

	// ListRecords returns metadata for all stored records, newest first.
	ListRecords() ([]RecordInfo, error)

	// DeleteRecord removes the record and all of its artifacts:
	//   - record.json
	//   - composite.png / composite.webp
	//   - trace.jsonl
	//
	// Returns ErrNotFound if no record exists.
	DeleteRecord(id string) error

	// ArtifactPath returns the path of a named artifact next to the record,
	// creating the record directory if needed.
	ArtifactPath(id, name string) (string, error)
}

// Artifact names written next to record.json.
const (
	ArtifactCompositePNG  = "composite.png"
	ArtifactCompositeWebP = "composite.webp"
	ArtifactTrace         = "trace.jsonl"
)

// ErrNotFound is returned when a requested record does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing record error.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "render record not found: " + e.ID
	}
	return "render record not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
