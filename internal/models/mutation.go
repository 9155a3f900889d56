package models

// InsertResult mirrors the store acknowledgement of an insert.
type InsertResult struct {
	InsertedID string `json:"insertedId"`
}

// UpdateResult mirrors the store acknowledgement of an update.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteResult mirrors the store acknowledgement of a delete.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// SelectionResult is returned by a class selection. Matched is the soft
// conflict signal for a pair that was already selected.
type SelectionResult struct {
	Matched    bool   `json:"matched,omitempty"`
	InsertedID string `json:"insertedId,omitempty"`
}

// EnrollmentDrift describes a class whose counters disagree with its
// successful selections.
type EnrollmentDrift struct {
	ClassID       string `json:"classId"`
	ClassName     string `json:"className"`
	Recorded      int    `json:"recorded"`
	Counted       int    `json:"counted"`
	AvailableSeat int    `json:"availableSeat"`
	AdjustedSeat  int    `json:"adjustedSeat"`
	Applied       bool   `json:"applied"`
}
