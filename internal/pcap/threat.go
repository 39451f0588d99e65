package pcap

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// Threat kinds reported by AnalyzeThreats.
const (
	ThreatTelnetProbe  = "telnet-probe"
	ThreatPortSweep    = "port-sweep"
	ThreatDiscovery    = "broadcast-discovery"
	ThreatPrinterProbe = "printer-probe"
	ThreatBulkTransfer = "bulk-transfer"
)

// portSweepThreshold is the number of distinct destination ports one source
// must touch on one host to count as a sweep.
const portSweepThreshold = 5

// bulkTransferThreshold is the outbound payload volume, in bytes, that
// flags a conversation as exfiltration.
const bulkTransferThreshold = 50 * 1024

// Finding is a gradeable threat detected in a capture.
type Finding struct {
	Kind    string
	Source  string
	Target  string
	Detail  string
	Records []int // capture indexes of the evidence
}

// AnalyzeThreats runs the threat predicates over a parsed capture. Rules
// are pure functions of the records, so repeated analysis of the same
// capture yields identical findings.
func AnalyzeThreats(records []Record) []Finding {
	var findings []Finding
	findings = append(findings, probeFindings(records, 23, ThreatTelnetProbe, "telnet probe")...)
	findings = append(findings, probeFindings(records, 9100, ThreatPrinterProbe, "raw printing port probe")...)
	findings = append(findings, sweepFindings(records)...)
	findings = append(findings, discoveryFindings(records)...)
	findings = append(findings, bulkFindings(records)...)
	return findings
}

// probeFindings flags each source that touched the given TCP port.
func probeFindings(records []Record, port int, kind, what string) []Finding {
	evidence := make(map[string][]int) // "src>dst"
	for _, r := range records {
		if r.Protocol == "TCP" && r.DstPort == port {
			key := r.SrcIP + ">" + r.DstIP
			evidence[key] = append(evidence[key], r.Index)
		}
	}
	var out []Finding
	for _, key := range sortedKeys(evidence) {
		src, dst, _ := strings.Cut(key, ">")
		out = append(out, Finding{
			Kind:    kind,
			Source:  src,
			Target:  dst,
			Detail:  fmt.Sprintf("%s against port %d", what, port),
			Records: evidence[key],
		})
	}
	return out
}

func sweepFindings(records []Record) []Finding {
	type pair struct{ src, dst string }
	ports := make(map[pair]map[int]bool)
	evidence := make(map[pair][]int)
	for _, r := range records {
		if r.Protocol != "TCP" || r.SrcIP == "" {
			continue
		}
		k := pair{r.SrcIP, r.DstIP}
		if ports[k] == nil {
			ports[k] = make(map[int]bool)
		}
		ports[k][r.DstPort] = true
		evidence[k] = append(evidence[k], r.Index)
	}

	var keys []pair
	for k, touched := range ports {
		if len(touched) >= portSweepThreshold {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].src != keys[j].src {
			return keys[i].src < keys[j].src
		}
		return keys[i].dst < keys[j].dst
	})

	var out []Finding
	for _, k := range keys {
		out = append(out, Finding{
			Kind:    ThreatPortSweep,
			Source:  k.src,
			Target:  k.dst,
			Detail:  fmt.Sprintf("%d distinct ports probed", len(ports[k])),
			Records: evidence[k],
		})
	}
	return out
}

func discoveryFindings(records []Record) []Finding {
	evidence := make(map[string][]int)
	for _, r := range records {
		broadcast := r.DstMAC == "ff:ff:ff:ff:ff:ff" || strings.HasSuffix(r.DstIP, ".255")
		if broadcast && r.SrcIP != "" {
			evidence[r.SrcIP] = append(evidence[r.SrcIP], r.Index)
		}
	}
	var out []Finding
	for _, src := range sortedKeys(evidence) {
		out = append(out, Finding{
			Kind:    ThreatDiscovery,
			Source:  src,
			Target:  "broadcast",
			Detail:  "network discovery via broadcast",
			Records: evidence[src],
		})
	}
	return out
}

// bulkFindings flags large private-to-public transfers.
func bulkFindings(records []Record) []Finding {
	volume := make(map[string]int) // "src>dst"
	evidence := make(map[string][]int)
	for _, r := range records {
		if r.SrcIP == "" || r.DstIP == "" {
			continue
		}
		if !isPrivateIPv4(r.SrcIP) || isPrivateIPv4(r.DstIP) {
			continue
		}
		key := r.SrcIP + ">" + r.DstIP
		volume[key] += len(r.L4Payload)
		evidence[key] = append(evidence[key], r.Index)
	}
	var out []Finding
	for _, key := range sortedKeys(volume) {
		if volume[key] < bulkTransferThreshold {
			continue
		}
		src, dst, _ := strings.Cut(key, ">")
		out = append(out, Finding{
			Kind:    ThreatBulkTransfer,
			Source:  src,
			Target:  dst,
			Detail:  fmt.Sprintf("%d bytes sent to external host", volume[key]),
			Records: evidence[key],
		})
	}
	return out
}

func isPrivateIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.IsPrivate()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
