package handler

import (
	"errors"
	"fmt"

	"github.com/go-telegram/bot/models"
)

// Sentinel causes for failed checks. Checks return these (or errors
// wrapping them) so callers can match with errors.Is.
var (
	// ErrCheckFailed is the generic cause for a check that declined an
	// invocation without naming a reason.
	ErrCheckFailed = errors.New("check failed")
	// ErrNotOwner means the invoking user is not a registered bot owner.
	ErrNotOwner = fmt.Errorf("%w: not a bot owner", ErrCheckFailed)
	// ErrGroupOnly means the command only runs in group chats.
	ErrGroupOnly = fmt.Errorf("%w: group chats only", ErrCheckFailed)
	// ErrPrivateOnly means the command only runs in private chats.
	ErrPrivateOnly = fmt.Errorf("%w: private chats only", ErrCheckFailed)
)

// Usage errors for the response protocol.
var (
	// ErrNoResponses is returned when editing or deleting the last
	// response of a context that has not responded yet.
	ErrNoResponses = errors.New("no responses have been sent for this context")
	// ErrDeleteAlreadyScheduled is returned when DeleteAfter is called a
	// second time on the same response.
	ErrDeleteAlreadyScheduled = errors.New("a delayed delete is already scheduled for this response")
)

// Registry errors.
var (
	// ErrDuplicateName is returned when registering a command under a
	// name that is already taken.
	ErrDuplicateName = errors.New("command name already registered")
	// ErrNotRegistered is returned when removing a command that does not
	// exist.
	ErrNotRegistered = errors.New("command not registered")
)

// UnknownCommandError reports a prefixed message whose name token did not
// match any registered command.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// NotEnoughArgumentsError reports an invocation with fewer tokens than the
// command's minimum arity.
type NotEnoughArgumentsError struct {
	Command string
	Min     int
	Got     int
}

func (e *NotEnoughArgumentsError) Error() string {
	return fmt.Sprintf("command %q needs at least %d argument(s), got %d", e.Command, e.Min, e.Got)
}

// TooManyArgumentsError reports an invocation with more tokens than the
// command's maximum arity when extras are disallowed.
type TooManyArgumentsError struct {
	Command string
	Max     int
	Got     int
}

func (e *TooManyArgumentsError) Error() string {
	return fmt.Sprintf("command %q takes at most %d argument(s), got %d", e.Command, e.Max, e.Got)
}

// CheckError reports the first check that stopped an invocation. Cause is
// one of the check sentinels above, or ErrCheckFailed when the check
// declined with a plain false.
type CheckError struct {
	Command string
	Cause   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("command %q: %v", e.Command, e.Cause)
}

func (e *CheckError) Unwrap() error {
	return e.Cause
}

// InvocationError carries one dispatch failure plus the message that
// triggered it. These are delivered to the registered ErrorHandler instead
// of unwinding out of the pipeline.
type InvocationError struct {
	// Err is the failure cause: one of the taxonomy errors above, or an
	// arbitrary error returned by a command handler.
	Err error
	// Message is the inbound message whose handling failed.
	Message *models.Message
}

func (e *InvocationError) Error() string {
	return e.Err.Error()
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
