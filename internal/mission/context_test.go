package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	ctx := NewContext()
	assert.Nil(t, ctx.Active())

	m, err := Load([]byte(minimalMission))
	require.NoError(t, err)
	tr := NewTracker(m, nil)

	ctx.SetActive(tr)
	assert.Same(t, tr, ctx.Active())

	ctx.Clear()
	assert.Nil(t, ctx.Active())
}
