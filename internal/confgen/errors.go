package confgen

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidAccessPoint    = errors.New("invalid access point")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrNoMatchingInterfaces  = errors.New("no matching fabric interfaces")
	ErrNoUsableEngines       = errors.New("no usable engines")
	ErrInternal              = errors.New("internal invariant violation")
)

// AccessPointError reports a malformed access point entry.
type AccessPointError struct {
	Entry  string
	Reason string
}

func (e *AccessPointError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidAccessPoint, e.Entry, e.Reason)
}

func (e *AccessPointError) Unwrap() error { return ErrInvalidAccessPoint }

// InsufficientResourcesError reports a requested engine count or SSD
// threshold above what the inventory can satisfy.
type InsufficientResourcesError struct {
	Requested int
	Available int
	// Limit names the resource that capped Available.
	Limit string
}

func (e *InsufficientResourcesError) Error() string {
	return fmt.Sprintf("%s: requested %d engines, at most %d possible (limited by %s)",
		ErrInsufficientResources, e.Requested, e.Available, e.Limit)
}

func (e *InsufficientResourcesError) Unwrap() error { return ErrInsufficientResources }

// NoMatchingInterfacesError reports that no interface passed the class and
// provider filters.
type NoMatchingInterfacesError struct {
	NetClass string
	Provider string
}

func (e *NoMatchingInterfacesError) Error() string {
	class := e.NetClass
	if class == "" {
		class = "any"
	}
	msg := fmt.Sprintf("%s: class %s", ErrNoMatchingInterfaces, class)
	if e.Provider != "" {
		msg += fmt.Sprintf(", provider %s", e.Provider)
	}
	return msg
}

func (e *NoMatchingInterfacesError) Unwrap() error { return ErrNoMatchingInterfaces }

type NoUsableEnginesError struct {
	Reason string
}

func (e *NoUsableEnginesError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNoUsableEngines, e.Reason)
}

func (e *NoUsableEnginesError) Unwrap() error { return ErrNoUsableEngines }

// InvariantError signals an inventory or allocator bug. It is never caused
// by user input.
type InvariantError struct {
	Engine int
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: engine %d: %s", ErrInternal, e.Engine, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInternal }

// IsInternal reports whether err is an invariant violation.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}
