// Package operation holds the registration table that tells the gate which
// operations require authentication and which scopes they demand.
//
// The table is built once at startup and is read-only afterwards:
//
//	registry, err := operation.NewRegistry(
//	    operation.WithRequirement(operation.ID(http.MethodGet, "/whoAmI")),
//	    operation.WithRequirement(operation.ID(http.MethodGet, "/users"), "read:users"),
//	)
//
// Operations that are not registered are anonymous: the gate lets them through
// without looking at the request's credentials.
package operation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Requirement marks an operation as requiring a valid bearer token. A
// non-empty scope list additionally requires the token to grant at least
// one of the scopes.
type Requirement struct {
	scopes []string
}

// Require builds a Requirement for the given scopes. Empty scopes are dropped.
func Require(scopes ...string) Requirement {
	var kept []string
	for _, s := range scopes {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return Requirement{scopes: kept}
}

// Scopes returns a copy of the required scopes.
func (r Requirement) Scopes() []string {
	if len(r.scopes) == 0 {
		return nil
	}
	return append([]string(nil), r.scopes...)
}

// Lookup resolves the requirement of an operation. The boolean is false
// for anonymous operations.
type Lookup func(operationID string) (Requirement, bool)

// Entry is the declarative form of a registration, suitable for loading
// from configuration files.
type Entry struct {
	ID     string   `mapstructure:"id" yaml:"id" json:"id"`
	Scopes []string `mapstructure:"scopes" yaml:"scopes" json:"scopes"`
}

// ID builds the canonical identifier of an HTTP operation, e.g. "GET /whoAmI".
func ID(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Registry is an immutable table of operation requirements.
type Registry struct {
	requirements map[string]Requirement
}

// RegistryOption adds registrations while building a Registry.
type RegistryOption func(*Registry) error

// Sentinel errors returned while building a Registry.
var (
	ErrEmptyOperationID     = errors.New("operation id cannot be empty")
	ErrDuplicateOperationID = errors.New("operation registered twice")
)

// NewRegistry builds a Registry from the given registrations.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	r := &Registry{requirements: make(map[string]Requirement)}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("invalid registration: %w", err)
		}
	}

	return r, nil
}

// WithRequirement registers an operation as requiring authentication,
// optionally with scopes.
func WithRequirement(operationID string, scopes ...string) RegistryOption {
	return func(r *Registry) error {
		return r.add(operationID, Require(scopes...))
	}
}

// WithEntries registers every entry.
func WithEntries(entries []Entry) RegistryOption {
	return func(r *Registry) error {
		for _, e := range entries {
			if err := r.add(e.ID, Require(e.Scopes...)); err != nil {
				return err
			}
		}
		return nil
	}
}

func (r *Registry) add(operationID string, req Requirement) error {
	if strings.TrimSpace(operationID) == "" {
		return ErrEmptyOperationID
	}
	if _, exists := r.requirements[operationID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateOperationID, operationID)
	}
	r.requirements[operationID] = req
	return nil
}

// Lookup returns the requirement registered for operationID. It satisfies
// the Lookup function type.
func (r *Registry) Lookup(operationID string) (Requirement, bool) {
	req, ok := r.requirements[operationID]
	return req, ok
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	return len(r.requirements)
}

// IDs returns the registered operation ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.requirements))
	for id := range r.requirements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
