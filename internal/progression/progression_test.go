package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	s := New(nil)

	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{4000, 7},
		{999999, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.LevelFor(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevelFor_Monotone(t *testing.T) {
	s := New(nil)
	prev := 0
	for xp := 0; xp <= 5000; xp += 50 {
		level := s.LevelFor(xp)
		assert.GreaterOrEqual(t, level, prev)
		prev = level
	}
}

func TestApplyReward_Identity(t *testing.T) {
	s := New(nil)
	p := Profile{Nickname: "hero", XP: 120, Level: 2, Reputation: 5, Credits: 40,
		Badges: []string{"first_blood"}}
	before := p

	s.ApplyReward(&p, Reward{})

	assert.Equal(t, before, p, "zero reward must leave the profile unchanged")
}

func TestApplyReward_LevelUpExactThreshold(t *testing.T) {
	s := New(nil)
	// level 1, 100 XP away from level 2
	p := Profile{XP: 0, Level: 1}

	s.ApplyReward(&p, Reward{XP: 100})

	assert.Equal(t, 100, p.XP)
	assert.Equal(t, 2, p.Level)
}

func TestApplyReward_ExcessXPCarriesOver(t *testing.T) {
	s := New(nil)
	p := Profile{XP: 90, Level: 1}

	s.ApplyReward(&p, Reward{XP: 200})

	assert.Equal(t, 290, p.XP, "no XP lost at level boundary")
	assert.Equal(t, 3, p.Level)
}

func TestApplyReward_ReputationMayGoNegative(t *testing.T) {
	s := New(nil)
	p := Profile{Reputation: 2}

	s.ApplyReward(&p, Reward{Reputation: -10})

	assert.Equal(t, -8, p.Reputation)
}

func TestApplyReward_XPAndCreditsFloorAtZero(t *testing.T) {
	s := New(nil)
	p := Profile{XP: 10, Credits: 10}

	s.ApplyReward(&p, Reward{XP: -50, Credits: -50})

	assert.Equal(t, 0, p.XP)
	assert.Equal(t, 0, p.Credits)
}

func TestApplyReward_UnlocksAreSetLike(t *testing.T) {
	s := New(nil)
	p := Profile{}

	r := Reward{Badges: []string{"net_detective"}, UnlockTools: []string{"nmap"}, UnlockMissions: []string{"mission_2"}}
	s.ApplyReward(&p, r)
	s.ApplyReward(&p, r)

	assert.Equal(t, []string{"net_detective"}, p.Badges)
	assert.Equal(t, []string{"nmap"}, p.UnlockedTools)
	assert.Equal(t, []string{"mission_2"}, p.UnlockedMissions)
	assert.True(t, p.HasTool("nmap"))
	assert.False(t, p.HasTool("wireshark"))
}

func TestSpend(t *testing.T) {
	s := New(nil)
	p := Profile{Credits: 100}

	require.NoError(t, s.Spend(&p, 40))
	assert.Equal(t, 60, p.Credits)

	err := s.Spend(&p, 61)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 60, p.Credits, "failed spend must not change the balance")

	assert.Error(t, s.Spend(&p, -5))
}

func TestLevelName(t *testing.T) {
	s := New(nil)
	assert.Equal(t, "Rookie", s.LevelName(1))
	assert.Equal(t, "Cyber Hero", s.LevelName(7))
	assert.Equal(t, "Rookie", s.LevelName(0))
	assert.Equal(t, "Cyber Hero", s.LevelName(99))
}

func TestNextThreshold(t *testing.T) {
	s := New(nil)
	assert.Equal(t, 100, s.NextThreshold(1))
	assert.Equal(t, 250, s.NextThreshold(2))
	assert.Equal(t, -1, s.NextThreshold(7))
}

func TestMarkMissionComplete(t *testing.T) {
	s := New(nil)
	p := Profile{}

	s.MarkMissionComplete(&p, "mission_1")
	s.MarkMissionComplete(&p, "mission_1")

	assert.Equal(t, []string{"mission_1"}, p.CompletedMissions)
	assert.True(t, p.HasCompleted("mission_1"))
}
