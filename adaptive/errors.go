package adaptive

import (
	"errors"
	"strconv"

	"github.com/sghaida/adaptive/contract"
	"github.com/sghaida/adaptive/resolve"
)

var (
	// ErrConfiguration is wrapped by every ConfigurationError.
	ErrConfiguration = errors.New("adaptive: configuration error")

	// ErrShape is wrapped by every ShapeError.
	ErrShape = errors.New("adaptive: unsupported member shape")

	// ErrUnmatchedMember is wrapped by every UnmatchedMemberError.
	ErrUnmatchedMember = errors.New("adaptive: no handler matched member")

	// ErrBinding is wrapped by every BindingError.
	ErrBinding = resolve.ErrBinding

	// ErrReturnType is returned when a member body produces a value that cannot
	// be converted to the declared result type.
	ErrReturnType = errors.New("adaptive: return value does not fit declared type")

	// ErrUnknownMember is returned when an instance is asked for a member its
	// type does not implement.
	ErrUnknownMember = errors.New("adaptive: unknown member")

	// ErrDuplicateName is returned when a module already holds a definition
	// under the same name.
	ErrDuplicateName = errors.New("adaptive: duplicate name in module")

	// ErrSynthesisPanic is returned when a user callback panics during synthesis.
	ErrSynthesisPanic = errors.New("adaptive: panic during synthesis")

	// ErrArgumentCount is returned when a call passes the wrong number of arguments.
	ErrArgumentCount = errors.New("adaptive: wrong number of arguments")

	// ErrNilTarget is returned by forwarding members when the target is nil.
	ErrNilTarget = errors.New("adaptive: nil forwarding target")
)

// BindingError reports a handler function that cannot be found or specialized
// on the base type.
type BindingError = resolve.BindingError

// ConfigurationError reports a bad factory setup. It is raised when the
// mistake is made (at registration) and returned again by Implement.
type ConfigurationError struct {
	// Subject names what is misconfigured, e.g. the base type or a handler.
	Subject string
	Reason  string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	// Example: adaptive: configuration error: method handler #2: second terminal strategy
	return ErrConfiguration.Error() + ": " + e.Subject + ": " + e.Reason
}

// Unwrap returns ErrConfiguration.
func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ShapeError reports a member whose shape cannot be implemented.
type ShapeError struct {
	// Interface is the declaring contract.
	Interface string
	Member    string
	Reason    string

	// Err is the validator error, if a validator rejected the member.
	Err error
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	// Example: adaptive: unsupported member shape "Repo.Load": by-reference parameter "out"
	msg := ErrShape.Error() + " " + strconv.Quote(e.Interface+"."+e.Member) + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrShape and the validator error.
func (e *ShapeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrShape}
	}
	return []error{ErrShape, e.Err}
}

// UnmatchedMemberError reports a member no registered handler accepted.
type UnmatchedMemberError struct {
	Interface string
	Member    string
	Kind      contract.Kind
}

// Error implements the error interface.
func (e *UnmatchedMemberError) Error() string {
	// Example: adaptive: no handler matched member: method "Repo.Load"
	return ErrUnmatchedMember.Error() + ": " + e.Kind.String() + " " + strconv.Quote(e.Interface+"."+e.Member)
}

// Unwrap returns ErrUnmatchedMember.
func (e *UnmatchedMemberError) Unwrap() error { return ErrUnmatchedMember }

// UnknownMemberError reports a dispatch to a member the type lacks.
type UnknownMemberError struct {
	Type   string
	Member string
	Kind   contract.Kind
}

// Error implements the error interface.
func (e *UnknownMemberError) Error() string {
	// Example: adaptive: unknown member: property "Name" on adaptive_1f3a_Base_9c0d
	return ErrUnknownMember.Error() + ": " + e.Kind.String() + " " + strconv.Quote(e.Member) + " on " + e.Type
}

// Unwrap returns ErrUnknownMember.
func (e *UnknownMemberError) Unwrap() error { return ErrUnknownMember }

// DuplicateNameError reports a second definition under an existing module name.
type DuplicateNameError struct {
	Module string
	Name   string
}

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	// Example: adaptive: duplicate name in module "adaptive": "QueryArgs"
	return ErrDuplicateName.Error() + " " + strconv.Quote(e.Module) + ": " + strconv.Quote(e.Name)
}

// Unwrap returns ErrDuplicateName.
func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

func configErr(subject, reason string) error {
	return &ConfigurationError{Subject: subject, Reason: reason}
}
