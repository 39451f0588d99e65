// internal/content/content_test.go
package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohaibbur/CYBER-HERO/internal/pcap"
)

func TestDefault(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)

	require.Len(t, lib.Missions, 3)
	assert.Equal(t, "mission_recon", lib.Missions[0].ID)
	assert.Equal(t, "mission_threats", lib.Missions[1].ID)
	assert.Equal(t, "mission_forensics", lib.Missions[2].ID)

	_, ok := lib.Network("home-lab")
	assert.True(t, ok)

	welcome, ok := lib.Email("mail-welcome")
	require.True(t, ok)
	assert.Equal(t, "mission_recon", welcome.MissionID)
	assert.Equal(t, int64(5000), welcome.DelayMs)
}

func TestCampaignChain(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)

	// every trigger and unlock must resolve inside the campaign
	for _, m := range lib.Missions {
		switch m.Trigger.Kind {
		case "mission-complete":
			_, ok := lib.Mission(m.Trigger.MissionID)
			assert.True(t, ok, "%s triggers on unknown mission", m.ID)
		case "mail-read":
			_, ok := lib.Email(m.Trigger.MailID)
			assert.True(t, ok, "%s triggers on unknown mail", m.ID)
		}
		for _, id := range m.Reward.UnlockMissions {
			_, ok := lib.Mission(id)
			assert.True(t, ok, "%s unlocks unknown mission", m.ID)
		}
	}
}

func TestGeneratedHostCapture(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)

	topo, ok := lib.Network("home-lab")
	require.True(t, ok)

	var raw []byte
	for _, h := range topo.Hosts {
		for _, f := range h.Files {
			if f.Path == "/var/log/evidence.pcap" {
				raw = []byte(f.Content)
			}
		}
	}
	require.NotEmpty(t, raw, "camera must host the generated capture")

	records, err := pcap.New(nil).Parse(raw)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	kinds := make(map[string]bool)
	for _, f := range pcap.AnalyzeThreats(records) {
		kinds[f.Kind] = true
	}
	for _, want := range []string{
		pcap.ThreatTelnetProbe,
		pcap.ThreatPortSweep,
		pcap.ThreatDiscovery,
		pcap.ThreatPrinterProbe,
		pcap.ThreatBulkTransfer,
	} {
		assert.True(t, kinds[want], "capture must exhibit %s", want)
	}
}

func TestMissionFiles(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)

	files := lib.MissionFiles("mission_recon")
	require.Len(t, files, 1)
	assert.Equal(t, "/missions/1/brief.txt", files[0].Path)
	assert.Contains(t, string(files[0].Content), "scan")

	files = lib.MissionFiles("mission_forensics")
	require.Len(t, files, 2)
	assert.Equal(t, "/missions/3/brief.txt", files[0].Path)
	assert.Equal(t, "/missions/3/suspicious.pcap", files[1].Path)
	assert.Equal(t, "analyzer", files[1].RequiredTool)

	assert.Nil(t, lib.MissionFiles("bogus"))
}

func TestForensicsAnswerKey(t *testing.T) {
	records, err := pcap.New(nil).Parse(forensicsCapture())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 3)

	graded := records[2]
	assert.Equal(t, "00:1e:ec:26:d2:ac", graded.DstMAC)
	assert.Equal(t, "26:02:06:49:6b:31", graded.SrcMAC)
	assert.Equal(t, "46.105.99.163", graded.SrcIP)
	assert.Equal(t, "192.168.4.2", graded.DstIP)
	assert.Equal(t, "TCP", graded.Protocol)
	assert.Equal(t, uint32(66), graded.CapturedLen)
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err, "an empty campaign directory is not a campaign")
}
