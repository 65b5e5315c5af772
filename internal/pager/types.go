package pager

import "fmt"

// Unset marks an unknown page index, page count or queue position.
const Unset = -1

// Direction is a navigation step.
type Direction int

const (
	Next Direction = iota
	Prev
)

// Step returns the index delta for the direction.
func (d Direction) Step() int {
	if d == Prev {
		return -1
	}
	return 1
}

func (d Direction) String() string {
	switch d {
	case Next:
		return "next"
	case Prev:
		return "prev"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// InRange reports whether index addresses a page of a set with count pages.
func InRange(index, count int) bool {
	return count > 0 && index >= 0 && index < count
}

// Artifact is the opaque image payload of one page. The zero value is empty.
type Artifact struct {
	data []byte
}

// NewArtifact copies b into a new artifact.
func NewArtifact(b []byte) Artifact {
	if len(b) == 0 {
		return Artifact{}
	}
	dup := make([]byte, len(b))
	copy(dup, b)
	return Artifact{data: dup}
}

// Bytes returns the artifact content. The slice is a loan: callers must not
// modify it.
func (a Artifact) Bytes() []byte {
	return a.data
}

// Len returns the artifact size in bytes.
func (a Artifact) Len() int {
	return len(a.data)
}

// IsZero reports whether the artifact carries no content.
func (a Artifact) IsZero() bool {
	return len(a.data) == 0
}
