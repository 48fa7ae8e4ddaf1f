// Package graph dispatches graph-style operations: a request names one
// operation and carries its arguments, and every operation name maps to
// exactly one registered resolver.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
)

// OperationResult is the uniform envelope returned by every mutation.
// Expected failure paths (validation, not-found, ownership) land here;
// authorization failures and internal errors never do.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MutationPayload wraps the envelope under the key mutation responses use
// on the wire.
type MutationPayload struct {
	OperationResult OperationResult `json:"operationResult"`
}

func OK(message string) MutationPayload {
	return MutationPayload{OperationResult: OperationResult{Success: true, Message: message}}
}

func Fail(message string) MutationPayload {
	return MutationPayload{OperationResult: OperationResult{Success: false, Message: message}}
}

// RequestError is a malformed-request failure whose message is safe to
// return to the caller as a transport error.
type RequestError struct {
	msg string
}

func (e *RequestError) Error() string {
	return e.msg
}

func Errorf(format string, args ...interface{}) error {
	return &RequestError{msg: fmt.Sprintf(format, args...)}
}

type Request struct {
	OperationName string          `json:"operationName"`
	Arguments     json.RawMessage `json:"arguments"`
}

type Error struct {
	Message string `json:"message"`
}

type Response struct {
	Data   map[string]interface{} `json:"data,omitempty"`
	Errors []Error                `json:"errors,omitempty"`
}

// Resolver handles one named operation. A nil caller is anonymous.
// Returned errors become top-level transport errors; everything a caller
// is expected to recover from belongs in the resolver's result instead.
type Resolver func(ctx context.Context, caller *auth.Identity, args json.RawMessage) (interface{}, error)

type Dispatcher struct {
	logger    *zap.Logger
	resolvers map[string]Resolver
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		resolvers: make(map[string]Resolver),
	}
}

func (d *Dispatcher) Register(name string, r Resolver) {
	d.resolvers[name] = r
}

// Dispatch invokes the resolver registered for the request's operation.
// Known failure classes pass through with their message; anything else is
// logged and masked as an internal error.
func (d *Dispatcher) Dispatch(ctx context.Context, caller *auth.Identity, req *Request) *Response {
	resolver, ok := d.resolvers[req.OperationName]
	if !ok {
		return &Response{Errors: []Error{{Message: fmt.Sprintf("Unknown operation %q.", req.OperationName)}}}
	}

	args := req.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	result, err := resolver(ctx, caller, args)
	if err != nil {
		if isUserFacing(err) {
			return &Response{Errors: []Error{{Message: err.Error()}}}
		}
		d.logger.Error("operation failed",
			zap.String("operation", req.OperationName),
			zap.Error(err))
		return &Response{Errors: []Error{{Message: "Internal server error."}}}
	}

	return &Response{Data: map[string]interface{}{req.OperationName: result}}
}

func isUserFacing(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return true
	}
	return errors.Is(err, auth.ErrAuthenticationRequired) ||
		errors.Is(err, auth.ErrPermissionDenied) ||
		errors.Is(err, auth.ErrInvalidCredentials) ||
		errors.Is(err, auth.ErrInvalidToken)
}
