// Package netsim implements the simulated network that reconnaissance
// commands query. Topology is fixed per mission so objectives grade
// deterministically.
package netsim

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dohaibbur/CYBER-HERO/internal/util"
)

var (
	ErrHostNotFound    = errors.New("host not found")
	ErrHostUnreachable = errors.New("host unreachable")
	ErrPortClosed      = errors.New("port closed")
	ErrAuthFailure     = errors.New("authentication failure")
)

// Port is an open service on a host.
type Port struct {
	Number  int    `yaml:"number"`
	Service string `yaml:"service"`
	Version string `yaml:"version"`
	Risky   bool   `yaml:"risky"`
}

// HostFile is a file hosted on a device, copied into the session
// filesystem on download.
type HostFile struct {
	Path         string `yaml:"path"`
	Content      string `yaml:"content"`
	Hidden       bool   `yaml:"hidden"`
	RequiredTool string `yaml:"requiredTool"`
}

// Host is a simulated network endpoint.
type Host struct {
	Address         string            `yaml:"address"`
	Hostname        string            `yaml:"hostname"`
	MAC             string            `yaml:"mac"`
	DeviceType      string            `yaml:"deviceType"`
	OS              string            `yaml:"os"`
	Ports           []Port            `yaml:"ports"`
	Vulnerabilities []string          `yaml:"vulnerabilities"`
	Credentials     map[string]string `yaml:"credentials"`
	Files           []HostFile        `yaml:"files"`
}

// Topology is a mission's network layout.
type Topology struct {
	Name    string `yaml:"name"`
	Subnet  string `yaml:"subnet"`
	Gateway string `yaml:"gateway"`
	Hosts   []Host `yaml:"hosts"`
}

// ScanResult is what scan and nmap style commands reveal about a host.
type ScanResult struct {
	Address         string
	Hostname        string
	MAC             string
	DeviceType      string
	OS              string
	OpenPorts       []Port
	Vulnerabilities []string
}

// Session is an authenticated connection to a host service.
type Session struct {
	Address string
	Port    int
	Service string
	User    string
}

// AuditFinding is one residual risk reported by Audit.
type AuditFinding struct {
	Address string
	Detail  string
}

// AuditReport summarizes remaining network risk after remediation commands.
type AuditReport struct {
	Findings []AuditFinding
}

// Clean reports whether the audit found no residual risk.
func (r AuditReport) Clean() bool {
	return len(r.Findings) == 0
}

// Simulator answers recon queries against a fixed topology and tracks the
// player's remediation state (blocked ports, isolated devices).
type Simulator struct {
	logger *slog.Logger
	topo   Topology
	byAddr map[string]*Host

	blocked  map[string]map[int]bool
	isolated map[string]bool
}

// New builds a simulator over the given topology.
func New(topo Topology, logger *slog.Logger) (*Simulator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Simulator{
		logger:   logger,
		topo:     topo,
		byAddr:   make(map[string]*Host, len(topo.Hosts)),
		blocked:  make(map[string]map[int]bool),
		isolated: make(map[string]bool),
	}
	for i := range topo.Hosts {
		h := &topo.Hosts[i]
		if !util.ValidIPv4(h.Address) {
			return nil, fmt.Errorf("host %q: invalid address %q", h.Hostname, h.Address)
		}
		if _, dup := s.byAddr[h.Address]; dup {
			return nil, fmt.Errorf("duplicate host address %s", h.Address)
		}
		s.byAddr[h.Address] = h
	}
	return s, nil
}

// Gateway returns the topology's gateway address.
func (s *Simulator) Gateway() string {
	return s.topo.Gateway
}

// Subnet returns the topology's subnet in CIDR form.
func (s *Simulator) Subnet() string {
	return s.topo.Subnet
}

// Hosts returns all hosts sorted by address, isolated ones included.
func (s *Simulator) Hosts() []Host {
	out := make([]Host, 0, len(s.topo.Hosts))
	out = append(out, s.topo.Hosts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Lookup returns the host at addr.
func (s *Simulator) Lookup(addr string) (*Host, error) {
	h, ok := s.byAddr[addr]
	if !ok {
		return nil, fmt.Errorf("%s: %w", addr, ErrHostNotFound)
	}
	return h, nil
}

// Scan reveals a host's open ports and vulnerability flags. Ports the
// player has blocked no longer show up; isolated hosts do not answer.
func (s *Simulator) Scan(addr string) (ScanResult, error) {
	h, err := s.Lookup(addr)
	if err != nil {
		return ScanResult{}, err
	}
	if s.isolated[addr] {
		return ScanResult{}, fmt.Errorf("%s: %w", addr, ErrHostUnreachable)
	}

	res := ScanResult{
		Address:         h.Address,
		Hostname:        h.Hostname,
		MAC:             h.MAC,
		DeviceType:      h.DeviceType,
		OS:              h.OS,
		Vulnerabilities: append([]string(nil), h.Vulnerabilities...),
	}
	for _, p := range h.Ports {
		if s.blocked[addr][p.Number] {
			continue
		}
		res.OpenPorts = append(res.OpenPorts, p)
	}
	sort.Slice(res.OpenPorts, func(i, j int) bool {
		return res.OpenPorts[i].Number < res.OpenPorts[j].Number
	})
	s.logger.Debug("scan", "addr", addr, "openPorts", len(res.OpenPorts))
	return res, nil
}

// Connect opens a session against a host service. Credentials are checked
// against the host's table; services without credentials accept anyone.
func (s *Simulator) Connect(addr string, port int, user, pass string) (Session, error) {
	h, err := s.Lookup(addr)
	if err != nil {
		return Session{}, err
	}
	if s.isolated[addr] {
		return Session{}, fmt.Errorf("%s: %w", addr, ErrHostUnreachable)
	}
	var svc *Port
	for i := range h.Ports {
		if h.Ports[i].Number == port {
			svc = &h.Ports[i]
			break
		}
	}
	if svc == nil || s.blocked[addr][port] {
		return Session{}, fmt.Errorf("%s:%d: %w", addr, port, ErrPortClosed)
	}
	if len(h.Credentials) > 0 {
		want, ok := h.Credentials[user]
		if !ok || want != pass {
			return Session{}, fmt.Errorf("%s:%d: %w", addr, port, ErrAuthFailure)
		}
	}
	s.logger.Info("session opened", "addr", addr, "port", port, "user", user)
	return Session{Address: addr, Port: port, Service: svc.Service, User: user}, nil
}

// BlockPort closes a port on a host for the rest of the mission.
func (s *Simulator) BlockPort(addr string, port int) error {
	h, err := s.Lookup(addr)
	if err != nil {
		return err
	}
	found := false
	for _, p := range h.Ports {
		if p.Number == port {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s:%d: %w", addr, port, ErrPortClosed)
	}
	if s.blocked[addr] == nil {
		s.blocked[addr] = make(map[int]bool)
	}
	s.blocked[addr][port] = true
	s.logger.Info("port blocked", "addr", addr, "port", port)
	return nil
}

// AllowPort reopens a previously blocked port.
func (s *Simulator) AllowPort(addr string, port int) error {
	if _, err := s.Lookup(addr); err != nil {
		return err
	}
	delete(s.blocked[addr], port)
	return nil
}

// IsBlocked reports whether the player has blocked a port on a host.
func (s *Simulator) IsBlocked(addr string, port int) bool {
	return s.blocked[addr][port]
}

// Isolate quarantines a device; it stops answering scans and connects.
func (s *Simulator) Isolate(addr string) error {
	if _, err := s.Lookup(addr); err != nil {
		return err
	}
	s.isolated[addr] = true
	s.logger.Info("device isolated", "addr", addr)
	return nil
}

// IsIsolated reports whether a device is quarantined.
func (s *Simulator) IsIsolated(addr string) bool {
	return s.isolated[addr]
}

// Audit reports residual risk: risky ports still open and untrusted
// devices still reachable.
func (s *Simulator) Audit() AuditReport {
	var report AuditReport
	for _, h := range s.Hosts() {
		if s.isolated[h.Address] {
			continue
		}
		for _, p := range h.Ports {
			if p.Risky && !s.blocked[h.Address][p.Number] {
				report.Findings = append(report.Findings, AuditFinding{
					Address: h.Address,
					Detail:  fmt.Sprintf("risky service %s open on port %d", p.Service, p.Number),
				})
			}
		}
		if h.DeviceType == "untrusted-device" || util.Contains(h.Vulnerabilities, "untrusted-device") {
			report.Findings = append(report.Findings, AuditFinding{
				Address: h.Address,
				Detail:  "untrusted device still on the network",
			})
		}
	}
	return report
}
