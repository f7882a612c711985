package ranking

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned when a drag or hover index falls outside the list.
var ErrIndexOutOfRange = errors.New("reorder index out of range")

// Reorder removes the element at dragIndex and reinserts it at hoverIndex of
// the shortened list. The input is never modified.
func Reorder[T any](list []T, dragIndex, hoverIndex int) ([]T, error) {
	n := len(list)
	if dragIndex < 0 || dragIndex >= n || hoverIndex < 0 || hoverIndex >= n {
		return nil, fmt.Errorf("%w: drag=%d hover=%d len=%d", ErrIndexOutOfRange, dragIndex, hoverIndex, n)
	}

	out := make([]T, 0, n)
	if dragIndex == hoverIndex {
		return append(out, list...), nil
	}

	moved := list[dragIndex]
	rest := make([]T, 0, n-1)
	rest = append(rest, list[:dragIndex]...)
	rest = append(rest, list[dragIndex+1:]...)

	out = append(out, rest[:hoverIndex]...)
	out = append(out, moved)
	out = append(out, rest[hoverIndex:]...)
	return out, nil
}
