package service

import "fmt"

// ErrUnknownRegion marks a player-supplied name that matches no
// region, board name, or alias. It is a reply problem, not a rule
// violation, so it lives outside the model error kinds.
type ErrUnknownRegion struct {
	Name string
}

func (e *ErrUnknownRegion) Error() string {
	return fmt.Sprintf("unknown region %q", e.Name)
}
