package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRecordKeepsExtraKeys(t *testing.T) {
	t.Parallel()

	var p ProfileRecord
	require.NoError(t, json.Unmarshal([]byte(`{"full_name":"Ada","age":30,"nationality":null,"visa_category":"F-1","field_of_study":"Math"}`), &p))

	require.NotNil(t, p.FullName)
	assert.Equal(t, "Ada", *p.FullName)
	assert.Nil(t, p.Nationality)
	assert.Equal(t, "F-1", p.VisaCategory)
	assert.Equal(t, map[string]any{"field_of_study": "Math"}, p.Extra)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"full_name":"Ada","age":30,"nationality":null,"visa_category":"F-1","field_of_study":"Math"}`, string(raw))
}

func TestProfileRecordNullCategory(t *testing.T) {
	t.Parallel()

	var p ProfileRecord
	require.NoError(t, json.Unmarshal([]byte(`{"full_name":null,"age":null,"nationality":null,"visa_category":null}`), &p))
	assert.Empty(t, p.VisaCategory)
	assert.Nil(t, p.Extra)
}

func TestStageErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("run: %w", &StageError{Stage: StageRecommend, Err: fmt.Errorf("%w: timeout", ErrModelInvoke)})
	assert.True(t, errors.Is(err, ErrModelInvoke))

	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageRecommend, stage)
	assert.Contains(t, err.Error(), "stage recommend")
}

func TestStateForCoversEveryStage(t *testing.T) {
	t.Parallel()

	seen := map[RunState]bool{}
	for _, st := range Stages {
		state := StateFor(st)
		assert.NotEqual(t, RunFailed, state)
		assert.False(t, state.Terminal())
		seen[state] = true
	}
	assert.Len(t, seen, len(Stages))
}
