package input

import (
	"fmt"
	"strings"
)

// Button identifies one of the three physical buttons. None means nothing is
// held.
type Button int

const (
	None Button = iota
	Left
	Middle
	Right
)

func (b Button) String() string {
	switch b {
	case None:
		return "none"
	case Left:
		return "left"
	case Middle:
		return "middle"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// ParseButton accepts left, middle or right in any case.
func ParseButton(name string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left":
		return Left, nil
	case "middle":
		return Middle, nil
	case "right":
		return Right, nil
	default:
		return None, fmt.Errorf("unknown button %q", name)
	}
}

// Source reports the currently held button.
type Source interface {
	Sample() Button
}
