package mission

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalMission = `
id: mission_test
title: Test Mission
briefing: Just for tests.
objectives:
  - id: run_scan
    title: Run a network scan
    hint: try "scan"
    predicate:
      kind: command-run
      command: scan
`

const reconMission = `
id: mission_recon
title: Know Your Network
network: home-lab
trigger:
  kind: mail-read
  mailId: professor-welcome
objectives:
  - id: discover
    title: Discover at least 3 devices
    predicate:
      kind: hosts-discovered
      count: 3
  - id: telnet_port
    title: Identify the telnet service
    predicate:
      kind: port-identified
      address: 192.168.1.66
      port: 23
  - id: isolate
    title: Isolate the rogue device
    predicate:
      kind: device-isolated
      address: 192.168.1.66
reward:
  xp: 100
  credits: 50
  badges: [network_defender]
  unlockMissions: [mission_threats]
followUp:
  id: professor-recon-done
  sender: prof.moreau@cyberhero.edu
  subject: Well done
  body: On to packet analysis.
  delayMs: 5000
`

// fakeState implements State with settable fields.
type fakeState struct {
	commands   []string
	hosts      int
	ports      map[string]bool // "addr:port"
	isolated   map[string]bool
	blocked    map[string]bool
	downloads  map[string]bool
	decoded    map[string]bool
	answers    map[string]string
	auditClean bool
	tools      map[string]bool
}

func (f *fakeState) CommandRun(prefix string) bool {
	for _, c := range f.commands {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
func (f *fakeState) DiscoveredHostCount() int { return f.hosts }
func (f *fakeState) PortIdentified(addr string, port int) bool {
	return f.ports[addrPort(addr, port)]
}
func (f *fakeState) DeviceIsolated(addr string) bool { return f.isolated[addr] }
func (f *fakeState) PortBlocked(addr string, port int) bool {
	return f.blocked[addrPort(addr, port)]
}
func (f *fakeState) FileDownloaded(path string) bool { return f.downloads[path] }
func (f *fakeState) CaptureDecoded(path string) bool { return f.decoded[path] }
func (f *fakeState) FieldAnswer(field string) (string, bool) {
	v, ok := f.answers[field]
	return v, ok
}
func (f *fakeState) AuditClean() bool { return f.auditClean }
func (f *fakeState) ToolUnlocked(tool string) bool { return f.tools[tool] }

func addrPort(addr string, port int) string {
	return addr + ":" + strconv.Itoa(port)
}

func TestLoad(t *testing.T) {
	m, err := Load([]byte(reconMission))
	require.NoError(t, err)

	assert.Equal(t, "mission_recon", m.ID)
	assert.Equal(t, TriggerMailRead, m.Trigger.Kind)
	assert.Equal(t, "professor-welcome", m.Trigger.MailID)
	require.Len(t, m.Objectives, 3)
	assert.Equal(t, PredHostsDiscovered, m.Objectives[0].Predicate.Kind)
	assert.Equal(t, 100, m.Reward.XP)
	assert.Equal(t, []string{"network_defender"}, m.Reward.Badges)
	require.NotNil(t, m.FollowUp)
	assert.Equal(t, int64(5000), m.FollowUp.DelayMs)
}

func TestLoad_DefaultsTriggerToImmediate(t *testing.T) {
	m, err := Load([]byte(minimalMission))
	require.NoError(t, err)
	assert.Equal(t, TriggerImmediate, m.Trigger.Kind)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", ":\n  - ["},
		{"missing id", "title: x\nobjectives:\n  - id: a\n    predicate: {kind: audit-clean}"},
		{"no objectives", "id: x"},
		{"objective without id", "id: x\nobjectives:\n  - title: a\n    predicate: {kind: audit-clean}"},
		{"duplicate objective", "id: x\nobjectives:\n  - id: a\n    predicate: {kind: audit-clean}\n  - id: a\n    predicate: {kind: audit-clean}"},
		{"unknown predicate", "id: x\nobjectives:\n  - id: a\n    predicate: {kind: pwn-everything}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestTracker_EvaluateIdempotent(t *testing.T) {
	m, err := Load([]byte(minimalMission))
	require.NoError(t, err)
	tr := NewTracker(m, nil)

	state := &fakeState{commands: []string{"scan 192.168.1.0/24"}}

	newly := tr.Evaluate(state)
	require.Len(t, newly, 1)
	assert.Equal(t, "run_scan", newly[0].ID)

	assert.Empty(t, tr.Evaluate(state), "unchanged state completes nothing new")
	assert.Empty(t, tr.Evaluate(state))
}

func TestTracker_Monotone(t *testing.T) {
	m, err := Load([]byte(minimalMission))
	require.NoError(t, err)
	tr := NewTracker(m, nil)

	tr.Evaluate(&fakeState{commands: []string{"scan"}})
	require.True(t, tr.IsComplete("run_scan"))

	// state regresses; completion must not
	tr.Evaluate(&fakeState{})
	assert.True(t, tr.IsComplete("run_scan"))
	assert.True(t, tr.Complete())
}

func TestTracker_RewardExactlyOnce(t *testing.T) {
	m, err := Load([]byte(minimalMission))
	require.NoError(t, err)
	tr := NewTracker(m, nil)

	state := &fakeState{commands: []string{"scan"}}
	awards := 0
	for i := 0; i < 5; i++ {
		tr.Evaluate(state)
		if tr.ConsumeCompletion() {
			awards++
		}
	}
	assert.Equal(t, 1, awards)
}

func TestTracker_ProgressAndHints(t *testing.T) {
	m, err := Load([]byte(reconMission))
	require.NoError(t, err)
	tr := NewTracker(m, nil)

	assert.Equal(t, 0.0, tr.Percent())
	first, ok := tr.FirstIncomplete()
	require.True(t, ok)
	assert.Equal(t, "discover", first.ID)

	tr.Evaluate(&fakeState{hosts: 3})
	assert.InDelta(t, 33.3, tr.Percent(), 0.1)

	next, ok := tr.FirstIncomplete()
	require.True(t, ok)
	assert.Equal(t, "telnet_port", next.ID)
	assert.False(t, tr.Complete())
}

func TestTracker_SnapshotRestore(t *testing.T) {
	m, err := Load([]byte(reconMission))
	require.NoError(t, err)

	tr := NewTracker(m, nil)
	tr.Evaluate(&fakeState{hosts: 5})
	snap := tr.Snapshot()
	assert.Equal(t, map[string]int{"discover": 1}, snap)

	restored := NewTracker(m, nil)
	restored.Restore(snap)
	assert.True(t, restored.IsComplete("discover"))
	assert.False(t, restored.IsComplete("isolate"))
}

func TestTracker_RestoreCompleteLatchesReward(t *testing.T) {
	m, err := Load([]byte(minimalMission))
	require.NoError(t, err)

	tr := NewTracker(m, nil)
	tr.Restore(map[string]int{"run_scan": 1})

	assert.True(t, tr.Complete())
	assert.False(t, tr.ConsumeCompletion(), "loading a finished mission must not re-award")
}

func TestAnswersMatch(t *testing.T) {
	tests := []struct {
		name string
		key  string
		got  string
		want bool
	}{
		{"mac case and separators", "00:1e:ec:26:d2:ac", "00-1E-EC-26-D2-AC", true},
		{"mac mismatch", "00:1e:ec:26:d2:ac", "00:1e:ec:26:d2:ad", false},
		{"protocol case", "TCP", "tcp", true},
		{"ip exact", "46.105.99.163", " 46.105.99.163 ", true},
		{"whitespace collapse", "len 66", "len   66", true},
		{"plain mismatch", "UDP", "TCP", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, answersMatch(tt.key, tt.got))
		})
	}
}

func TestEval_FieldAnswered(t *testing.T) {
	m := Mission{ID: "m", Objectives: []Objective{{
		ID: "dest_mac",
		Predicate: Predicate{
			Kind:   PredFieldAnswered,
			Field:  "dest_mac",
			Answer: "00:1e:ec:26:d2:ac",
		},
	}}}
	tr := NewTracker(m, nil)

	assert.Empty(t, tr.Evaluate(&fakeState{answers: map[string]string{}}))
	assert.Empty(t, tr.Evaluate(&fakeState{answers: map[string]string{"dest_mac": "wrong"}}))

	newly := tr.Evaluate(&fakeState{answers: map[string]string{"dest_mac": "00-1E-EC-26-D2-AC"}})
	assert.Len(t, newly, 1)
}
