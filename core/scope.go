package core

import (
	"fmt"
	"strings"
)

// CheckScopes enforces an operation's required scopes against a token's
// scope claim. Any single matching scope is sufficient. No required scopes
// means the check is skipped. The claim must be a space-delimited string;
// a list-encoded claim is rejected rather than guessed at.
func CheckScopes(scopeClaim any, required []string) error {
	if len(required) == 0 {
		return nil
	}

	granted, ok := scopeClaim.(string)
	if !ok {
		return NewValidationError(
			ErrorCodeInsufficientScope,
			"scope claim missing or not a string",
			nil,
		)
	}

	have := make(map[string]struct{})
	for _, s := range strings.Fields(granted) {
		have[s] = struct{}{}
	}
	for _, want := range required {
		if _, ok := have[want]; ok {
			return nil
		}
	}

	return NewValidationError(
		ErrorCodeInsufficientScope,
		fmt.Sprintf("token grants none of %v", required),
		nil,
	)
}
