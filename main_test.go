package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCleanShutdown(t *testing.T) {
	assert.True(t, isCleanShutdown(nil))
	assert.True(t, isCleanShutdown(context.Canceled))
	assert.True(t, isCleanShutdown(fmt.Errorf("update loop: %w", context.Canceled)))
	assert.False(t, isCleanShutdown(errors.New("updates channel closed")))
	assert.False(t, isCleanShutdown(context.DeadlineExceeded))
}
