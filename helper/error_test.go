package helper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	t.Run("Wraps cause and operation", func(t *testing.T) {
		cause := errors.New("disk gone")
		err := NewError("persist collection", cause)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "persist collection")
		assert.Contains(t, err.Error(), "disk gone")
		assert.True(t, errors.Is(err, cause), "Expected wrapped cause to stay reachable")
	})

	t.Run("Keeps typed errors reachable through errors.As", func(t *testing.T) {
		cause := fmt.Errorf("outer: %w", errors.New("inner"))
		err := NewError("query", cause)

		assert.True(t, errors.Is(err, cause))
	})
}
