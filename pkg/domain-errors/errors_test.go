package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndHasCode(t *testing.T) {
	cause := errors.New("boom")

	t.Run("nil error wraps to nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("code is found through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", Wrap(cause, CodeAlreadyRemoved, "card gone"))
		assert.True(t, HasCode(err, CodeAlreadyRemoved))
		assert.False(t, HasCode(err, CodeNotFound))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("nested codes are all visible", func(t *testing.T) {
		err := Wrap(New(CodeNotFound, "inspection missing"), CodeExternal, "lookup failed")
		assert.True(t, Is(err, CodeExternal))
		assert.True(t, Is(err, CodeNotFound))
		assert.Equal(t, CodeExternal, CodeOf(err))
	})

	t.Run("untagged errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(cause))
	})

	t.Run("message includes cause", func(t *testing.T) {
		assert.Equal(t, "card gone: boom", Wrap(cause, CodeAlreadyRemoved, "card gone").Error())
	})
}
