// Package toolutil holds the small conventions shared by every tool in
// internal/tools/*: turning a store error into a tool-call result vs.
// propagating it as a transport-level failure, and marshaling success
// payloads.
package toolutil

import (
	"fmt"

	"github.com/emergent-company/memoryd/internal/apperror"
	"github.com/emergent-company/memoryd/internal/mcp"
)

// Fail converts err into a result. Typed apperror.Errors (invalid input,
// not found, conflict, ...) become a normal tool-call result with
// IsError=true so the client sees a structured failure; anything else is
// returned as a real error, which the server logs and turns into an
// IsError result reading "tool execution failed: <error>".
func Fail(err error) (*mcp.ToolsCallResult, error) {
	if err == nil {
		return nil, nil
	}
	if _, ok := err.(*apperror.Error); ok {
		return mcp.ErrorResult(err.Error()), nil
	}
	return nil, err
}

// BadParams formats a parameter-decoding failure as a tool-call error
// result (invalid-input, never a transport error).
func BadParams(err error) (*mcp.ToolsCallResult, error) {
	return mcp.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
}

// Result marshals v as the tool's success payload.
func Result(v any) (*mcp.ToolsCallResult, error) {
	return mcp.JSONResult(v)
}
