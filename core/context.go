package core

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	principalKey contextKey = iota
)

// GetPrincipal retrieves the principal stored by a transport after a
// successful authentication.
//
// Example usage:
//
//	principal, err := core.GetPrincipal(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(principal.Subject)
func GetPrincipal(ctx context.Context) (*Principal, error) {
	principal, ok := ctx.Value(principalKey).(*Principal)
	if !ok || principal == nil {
		return nil, NewValidationError(
			ErrorCodePrincipalNotFound,
			"no principal in context",
			nil,
		)
	}
	return principal, nil
}

// MustGetPrincipal retrieves the principal from the context or panics.
// Use only behind a gate that protects the operation.
func MustGetPrincipal(ctx context.Context) *Principal {
	principal, err := GetPrincipal(ctx)
	if err != nil {
		panic(err)
	}
	return principal
}

// SetPrincipal stores the principal in the context.
// This is a helper for adapters to attach the principal after validation.
func SetPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// HasPrincipal checks if a principal exists in the context.
func HasPrincipal(ctx context.Context) bool {
	principal, ok := ctx.Value(principalKey).(*Principal)
	return ok && principal != nil
}
