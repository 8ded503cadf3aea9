package engine

import "fmt"

// Side names one of the three merge inputs.
type Side int

const (
	Left Side = iota
	Base
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Base:
		return "base"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Other returns the opposite side; Base is its own opposite.
func (s Side) Other() Side {
	switch s {
	case Left:
		return Right
	case Right:
		return Left
	}
	return s
}

func (s Side) valid() bool {
	return s == Left || s == Base || s == Right
}

// slot indexes the per-side resolution flags.
func (s Side) slot() int {
	if s == Right {
		return 1
	}
	return 0
}
