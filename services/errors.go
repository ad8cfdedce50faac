package services

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned when a caller passes values outside a
	// function's preconditions.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUpstream is returned when an external collaborator fails.
	ErrUpstream = errors.New("upstream service error")

	// ErrRateLimited is returned when an external collaborator throttles us.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrPlanNotFound is returned when no stored plan matches an id.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPlanExists is returned when a client supplied plan id is taken.
	ErrPlanExists = errors.New("plan id already in use")
)

// InvalidArgumentError names the offending argument.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// UpstreamError describes a failed call to Serper, SerpAPI or Gemini.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	if target == ErrUpstream {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}
