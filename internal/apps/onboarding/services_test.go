package onboarding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepIndexCoversAllSteps(t *testing.T) {
	for i, step := range Steps {
		idx, ok := stepIndex(step)
		require.True(t, ok, step)
		assert.Equal(t, i, idx)
	}

	_, ok := stepIndex("billing")
	assert.False(t, ok)
}

func TestStepsEndInDone(t *testing.T) {
	assert.Equal(t, StepDone, Steps[len(Steps)-1])
}

func TestGeneratePasscode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := generatePasscode(8)
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(passcodeAlphabet, ch), "unexpected character %q", ch)
		}
		seen[code] = true
	}
	// 50 draws from a 32^8 space should not collide.
	assert.Greater(t, len(seen), 45)
}
