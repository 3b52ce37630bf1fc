package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageRankFollowsPipelineOrder(t *testing.T) {
	for i, stage := range PipelineStages {
		rank, ok := stageRank(stage)
		require.True(t, ok, stage)
		assert.Equal(t, i, rank)
	}

	_, ok := stageRank("negotiation")
	assert.False(t, ok)
}

func TestIsClosed(t *testing.T) {
	assert.True(t, isClosed(StageWon))
	assert.True(t, isClosed(StageLost))
	assert.False(t, isClosed("lead"))
	assert.False(t, isClosed("proposal"))
}

func TestValidateStageMove(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		requested string
		wantErr   error
	}{
		{"forward one step", "lead", "contacted", nil},
		{"forward skipping steps", "lead", "proposal", nil},
		{"won from any open stage", "contacted", StageWon, nil},
		{"lost from any open stage", "lead", StageLost, nil},
		{"backwards", "proposal", "contacted", ErrStageRegression},
		{"same stage", "contacted", "contacted", ErrStageRegression},
		{"reopening a won contact", StageWon, "proposal", ErrContactClosed},
		{"moving a lost contact", StageLost, StageWon, ErrContactClosed},
		{"flipping won to lost", StageWon, StageLost, ErrContactClosed},
		{"unknown stage", "lead", "negotiation", ErrInvalidStage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStageMove(tt.current, tt.requested)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
