// internal/content/content.go

// Package content ships the playable campaign: mission scripts, network
// topologies and emails, embedded as YAML. A directory on disk with the
// same layout can replace the built-in set.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dohaibbur/CYBER-HERO/internal/mission"
	"github.com/dohaibbur/CYBER-HERO/internal/netsim"
)

//go:embed data
var embedded embed.FS

// Email is a scripted message delivered by the notification queue.
type Email struct {
	ID        string `yaml:"id"`
	Sender    string `yaml:"sender"`
	Subject   string `yaml:"subject"`
	Body      string `yaml:"body"`
	MissionID string `yaml:"missionId"` // mission this email introduces
	DelayMs   int64  `yaml:"delayMs"`
}

// SeedFile is a file placed into a session filesystem during mission setup.
type SeedFile struct {
	Path         string
	Content      []byte
	Hidden       bool
	RequiredTool string
}

// Library is the loaded campaign content.
type Library struct {
	Missions []mission.Mission // campaign order
	Networks map[string]netsim.Topology
	Emails   []Email
}

// Default loads the embedded campaign.
func Default() (*Library, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir loads a campaign from a directory with the data layout
// (missions/, networks/, emails.yaml).
func LoadDir(path string) (*Library, error) {
	return Load(os.DirFS(path))
}

// Load reads a campaign from any filesystem.
func Load(fsys fs.FS) (*Library, error) {
	lib := &Library{Networks: make(map[string]netsim.Topology)}

	missionFiles, err := fs.Glob(fsys, "missions/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(missionFiles)
	seen := make(map[string]bool)
	for _, name := range missionFiles {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		m, err := mission.Load(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("%s: duplicate mission id %s", name, m.ID)
		}
		seen[m.ID] = true
		lib.Missions = append(lib.Missions, m)
	}
	if len(lib.Missions) == 0 {
		return nil, fmt.Errorf("campaign has no missions")
	}

	networkFiles, err := fs.Glob(fsys, "networks/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(networkFiles)
	for _, name := range networkFiles {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		topo, err := netsim.LoadTopology(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		expandGenerated(&topo)
		lib.Networks[topo.Name] = topo
	}

	for _, m := range lib.Missions {
		if m.Network == "" {
			continue
		}
		if _, ok := lib.Networks[m.Network]; !ok {
			return nil, fmt.Errorf("mission %s references unknown network %s", m.ID, m.Network)
		}
	}

	raw, err := fs.ReadFile(fsys, "emails.yaml")
	if err == nil {
		var doc struct {
			Emails []Email `yaml:"emails"`
		}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("emails.yaml: %w", err)
		}
		lib.Emails = doc.Emails
	}

	return lib, nil
}

// expandGenerated swaps "@generate:<name>" host file bodies for generated
// binary content.
func expandGenerated(topo *netsim.Topology) {
	for hi := range topo.Hosts {
		for fi := range topo.Hosts[hi].Files {
			f := &topo.Hosts[hi].Files[fi]
			name, ok := strings.CutPrefix(f.Content, "@generate:")
			if !ok {
				continue
			}
			if gen, known := generators[strings.TrimSpace(name)]; known {
				f.Content = string(gen())
			}
		}
	}
}

// Mission returns a campaign mission by id.
func (l *Library) Mission(id string) (mission.Mission, bool) {
	for _, m := range l.Missions {
		if m.ID == id {
			return m, true
		}
	}
	return mission.Mission{}, false
}

// Network returns a topology by name.
func (l *Library) Network(name string) (netsim.Topology, bool) {
	t, ok := l.Networks[name]
	return t, ok
}

// Email returns a scripted email by id, checking mission follow-ups too.
func (l *Library) Email(id string) (Email, bool) {
	for _, e := range l.Emails {
		if e.ID == id {
			return e, true
		}
	}
	for _, m := range l.Missions {
		if m.FollowUp != nil && m.FollowUp.ID == id {
			return Email{
				ID:        m.FollowUp.ID,
				Sender:    m.FollowUp.Sender,
				Subject:   m.FollowUp.Subject,
				Body:      m.FollowUp.Body,
				MissionID: m.ID,
				DelayMs:   m.FollowUp.DelayMs,
			}, true
		}
	}
	return Email{}, false
}

// Ordinal returns the 1-based campaign position of a mission, used for the
// /missions/<n> folder naming.
func (l *Library) Ordinal(id string) int {
	for i, m := range l.Missions {
		if m.ID == id {
			return i + 1
		}
	}
	return 0
}

// MissionFiles returns the files seeded into the session filesystem when a
// mission starts: the brief plus any mission-specific evidence.
func (l *Library) MissionFiles(id string) []SeedFile {
	m, ok := l.Mission(id)
	if !ok {
		return nil
	}
	dir := "/missions/" + strconv.Itoa(l.Ordinal(id))
	files := []SeedFile{{
		Path:    dir + "/brief.txt",
		Content: []byte(m.Briefing),
	}}
	for _, extra := range missionExtras[id] {
		files = append(files, SeedFile{
			Path:         dir + "/" + extra.name,
			Content:      extra.gen(),
			RequiredTool: extra.requiredTool,
		})
	}
	return files
}
