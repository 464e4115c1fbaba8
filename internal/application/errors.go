package application

import (
	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// opFailed wraps an infrastructure failure that is not attributable to
// caller input.
func opFailed(err error, format string, args ...any) error {
	return model.NewError(model.KindGitOperationFailed, format, args...).WithCause(err)
}

// branchNotFound builds the not-found error for a missing branch ref.
func branchNotFound(name string) error {
	return model.NewError(model.KindBranchNotFound, "branch %q does not exist", name)
}

// isVariant reports whether err is a git failure tagged with any of the
// given variants.
func isVariant(err error, variants ...driven.Variant) bool {
	got := driven.VariantOf(err)
	if got == "" {
		return false
	}
	for _, v := range variants {
		if got == v {
			return true
		}
	}
	return false
}
