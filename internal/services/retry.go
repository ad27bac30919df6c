package services

import (
	"github.com/pkg/errors"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

const maxAttempts = 3

// withRetry reruns a load-mutate-save cycle while the save loses a version race.
// fn must reload the document on every call.
func withRetry(fn func() error) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn()
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
	}
	return apperr.ErrVersionConflict
}
