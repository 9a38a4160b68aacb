package asyncop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpLifecycle(t *testing.T) {
	var op Op[int]
	assert.Equal(t, Idle, op.State())

	op.Start()
	assert.True(t, op.Pending())

	op.Succeed(42)
	assert.Equal(t, Success, op.State())
	assert.Equal(t, 42, op.Value())
	assert.NoError(t, op.Err())
}

func TestOpFailureClearsValue(t *testing.T) {
	var op Op[string]
	op.Succeed("ok")

	op.Start()
	op.Fail(errors.New("boom"))

	assert.Equal(t, Failure, op.State())
	assert.Empty(t, op.Value())
	assert.EqualError(t, op.Err(), "boom")
}

func TestOpReset(t *testing.T) {
	var op Op[int]
	op.Fail(errors.New("boom"))

	op.Reset()

	assert.Equal(t, Idle, op.State())
	assert.NoError(t, op.Err())
}
