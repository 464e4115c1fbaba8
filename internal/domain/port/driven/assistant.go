package driven

import (
	"context"
	"errors"
)

// ErrAssistantNotConfigured indicates no suggestion backend is wired.
var ErrAssistantNotConfigured = errors.New("conflict assistant not configured")

// Assistant is the optional text-completion collaborator the conflict
// orchestrator can consult for a suggested resolution of one conflicted
// file. Correct conflict resolution never depends on it.
type Assistant interface {
	SuggestResolution(ctx context.Context, path, conflictedContent string) (string, error)
}
