package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel_Droppable(t *testing.T) {
	assert.True(t, LevelTrace.Droppable())
	assert.True(t, LevelDebug.Droppable())
	assert.True(t, LevelInfo.Droppable())
	assert.False(t, LevelWarn.Droppable())
	assert.False(t, LevelError.Droppable())
}

func TestJob_Validate(t *testing.T) {
	j := NewJob("netze-bw", 2024, DataKindGridCharges, PriorityHigh)
	assert.NoError(t, j.Validate())

	bad := NewJob("", 2024, DataKindGridCharges, PriorityHigh)
	err := bad.Validate()
	assert.Error(t, err)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, FailureBadInput, kind)
}
