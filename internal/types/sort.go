package types

import (
	"fmt"
	"strings"
)

// SortField is a sortable inbox field, spelled as the remote's order_by token.
type SortField string

// Sortable fields
const (
	SortCreatedAt  SortField = "createdAt"
	SortUpdatedAt  SortField = "updatedAt"
	SortSequenceID SortField = "sequenceId"
)

// IsValid checks if the field is sortable
func (f SortField) IsValid() bool {
	switch f {
	case SortCreatedAt, SortUpdatedAt, SortSequenceID:
		return true
	}
	return false
}

// SortDirection is ascending or descending.
type SortDirection string

// Sort directions
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// IsValid checks if the direction is asc or desc
func (d SortDirection) IsValid() bool {
	return d == SortAsc || d == SortDesc
}

// Sorting is the (field, direction) pair applied to a listing. A zero field
// or direction means the pair is incomplete and the default applies.
type Sorting struct {
	OrderBy   SortField     `json:"order_by,omitempty"`
	Direction SortDirection `json:"direction,omitempty"`
}

// DefaultSorting is newest first.
func DefaultSorting() Sorting {
	return Sorting{OrderBy: SortCreatedAt, Direction: SortDesc}
}

// IsComplete reports whether both halves are set.
func (s Sorting) IsComplete() bool {
	return s.OrderBy != "" && s.Direction != ""
}

// Token collapses the pair into the signed order_by token: the field for
// ascending, the field prefixed with "-" for descending. Incomplete pairs
// yield the default token.
func (s Sorting) Token() string {
	if !s.IsComplete() {
		return "-" + string(SortCreatedAt)
	}
	if s.Direction == SortDesc {
		return "-" + string(s.OrderBy)
	}
	return string(s.OrderBy)
}

func (s Sorting) String() string {
	return s.Token()
}

// ParseSortField maps user input to a sortable field.
// Accepts "createdAt", "created_at", "created", "updated", "sequence", "id".
func ParseSortField(raw string) (SortField, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")) {
	case "createdat", "created_at", "created":
		return SortCreatedAt, nil
	case "updatedat", "updated_at", "updated":
		return SortUpdatedAt, nil
	case "sequenceid", "sequence_id", "sequence", "id":
		return SortSequenceID, nil
	}
	return "", fmt.Errorf("invalid sort field %q (valid: createdAt, updatedAt, sequenceId)", raw)
}

// ParseSortDirection maps user input to a direction.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "asc", "ascending":
		return SortAsc, nil
	case "desc", "descending":
		return SortDesc, nil
	}
	return "", fmt.Errorf("invalid sort direction %q (valid: asc, desc)", raw)
}

// ParseSortToken is the inverse of Sorting.Token.
func ParseSortToken(token string) (Sorting, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return DefaultSorting(), nil
	}
	dir := SortAsc
	if strings.HasPrefix(token, "-") {
		dir = SortDesc
		token = token[1:]
	}
	field := SortField(token)
	if !field.IsValid() {
		return Sorting{}, fmt.Errorf("invalid order_by token %q", token)
	}
	return Sorting{OrderBy: field, Direction: dir}, nil
}
