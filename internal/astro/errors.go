package astro

import "fmt"

// ComputationError reports a broken internal invariant in the calculator.
// It indicates a defect, never bad user input.
type ComputationError struct {
	Op  string
	Msg string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("astro: %s: %s", e.Op, e.Msg)
}
