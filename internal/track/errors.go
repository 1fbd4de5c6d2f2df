package track

import "fmt"

// IndexError reports a triangle that references a vertex outside the buffer.
type IndexError struct {
	Triangle int
	Index    uint32
	Vertices int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("triangle %d references vertex %d of %d", e.Triangle, e.Index, e.Vertices)
}
