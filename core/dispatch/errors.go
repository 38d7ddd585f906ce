package dispatch

import (
	"errors"
	"fmt"

	"github.com/kilianp07/taxidispatch/core/model"
)

var (
	// ErrUnknownNode is matched by every *UnknownNodeError.
	ErrUnknownNode = errors.New("dispatch: unknown node")
	// ErrNoEnvironment is returned by map operations on a service map that is
	// not bound to a topology.
	ErrNoEnvironment = errors.New("dispatch: no environment bound")
)

// UnknownNodeError reports a map node, or one of its neighbours, missing from
// the world's node table.
type UnknownNodeError struct {
	Node      model.Coord
	Neighbour *model.Coord
}

func (e *UnknownNodeError) Error() string {
	if e.Neighbour != nil {
		return fmt.Sprintf("dispatch: node %s references neighbour %s which does not exist in the world", e.Node, *e.Neighbour)
	}
	return fmt.Sprintf("dispatch: node %s does not exist in the world", e.Node)
}

// Is makes errors.Is(err, ErrUnknownNode) succeed.
func (e *UnknownNodeError) Is(target error) bool { return target == ErrUnknownNode }
