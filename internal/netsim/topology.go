package netsim

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadTopology parses a YAML topology document.
func LoadTopology(data []byte) (Topology, error) {
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return Topology{}, fmt.Errorf("parsing topology: %w", err)
	}
	if len(topo.Hosts) == 0 {
		return Topology{}, fmt.Errorf("topology %q has no hosts", topo.Name)
	}
	return topo, nil
}
