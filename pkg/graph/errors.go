package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound    = errors.New("node not found")
	ErrEdgeNotFound    = errors.New("edge not found")
	ErrNodeInUse       = errors.New("node still referenced by edges")
	ErrStoreClosed     = errors.New("store is closed")
	ErrInvalidMutation = errors.New("invalid mutation")
	ErrVersionConflict = errors.New("version conflict")
)

// GraphError provides structured error information for store operations.
type GraphError struct {
	Op      string  // Operation that failed (e.g., "UpsertEdge", "DeleteNode")
	Entity  string  // Entity type ("node", "edge", "mutation")
	NodeID  NodeID  // Node ID (if applicable)
	EdgeKey EdgeKey // Edge key (if applicable)
	Cause   error   // Underlying error
	Context string  // Additional context
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.NodeID, e.Cause)
	case e.EdgeKey != EdgeKey{}:
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.EdgeKey, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *GraphError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ConflictError reports a failed optimistic precondition. The caller
// should take a fresh snapshot, rebuild the mutation and retry.
type ConflictError struct {
	Expected Version
	Actual   Version
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: expected %d, store at %d", e.Expected, e.Actual)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// IsConflict returns true if the error is an optimistic concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// ErrorBuilder provides a fluent interface for building GraphErrors.
type ErrorBuilder struct {
	err GraphError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: GraphError{Op: op}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id NodeID) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.NodeID = id
	return b
}

// Edge sets the entity to "edge" with the given key.
func (b *ErrorBuilder) Edge(key EdgeKey) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.EdgeKey = key
	return b
}

// Mutation sets the entity to "mutation".
func (b *ErrorBuilder) Mutation() *ErrorBuilder {
	b.err.Entity = "mutation"
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Convenience functions for common error patterns

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(op string, id NodeID) error {
	return NewError(op).Node(id).Cause(ErrNodeNotFound).Err()
}

// EdgeNotFoundError creates an edge not found error.
func EdgeNotFoundError(op string, key EdgeKey) error {
	return NewError(op).Edge(key).Cause(ErrEdgeNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrEdgeNotFound)
}
