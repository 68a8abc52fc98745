package translator

import (
	"fmt"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

// UnknownFieldError is returned when a default node names a field the
// registry does not know. It indicates a client/server definition mismatch.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown segment field %q", e.Name)
}

// AdapterError is returned when a node cannot be expressed by the backend.
type AdapterError struct {
	Node   model.NodeType
	Detail string
	Reason string
}

func (e *AdapterError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cannot translate %s node (%s): %s", e.Node, e.Detail, e.Reason)
	}
	return fmt.Sprintf("cannot translate %s node: %s", e.Node, e.Reason)
}
