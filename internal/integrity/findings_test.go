package integrity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingolabs/roundcore/pkg/types"
)

func makeFinding(id string) types.ValidationFinding {
	return types.ValidationFinding{ID: id, Category: types.CategoryBet, Severity: types.SeverityHigh}
}

func TestFindingLogRecentNewestFirst(t *testing.T) {
	log := newFindingLog(10, 3)
	for i := 0; i < 5; i++ {
		log.append(makeFinding(fmt.Sprintf("f%d", i)))
	}

	recent := log.recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "f4", recent[0].ID)
	assert.Equal(t, "f3", recent[1].ID)
	assert.Equal(t, "f2", recent[2].ID)
}

func TestFindingLogEvictsOldest(t *testing.T) {
	log := newFindingLog(3, 10)
	for i := 0; i < 5; i++ {
		log.append(makeFinding(fmt.Sprintf("f%d", i)))
	}

	assert.Equal(t, 3, log.size())
	recent := log.recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "f4", recent[0].ID)
	assert.Equal(t, "f2", recent[2].ID, "f0 and f1 were evicted")
}

func TestFindingLogEmpty(t *testing.T) {
	log := newFindingLog(3, 10)
	assert.Empty(t, log.recent())
	assert.Zero(t, log.size())
}
