package pcap

import (
	"fmt"
	"sort"
)

// Stream is a derived view grouping records into a logical conversation
// between two endpoints. Streams are computed on demand, never stored.
type Stream struct {
	ID        string
	EndpointA string
	EndpointB string
	Protocol  string
	Records   []Record
}

// Bytes returns the total transport payload carried by the stream.
func (s *Stream) Bytes() int {
	total := 0
	for _, r := range s.Records {
		total += len(r.L4Payload)
	}
	return total
}

// Streams groups records by unordered endpoint pair and protocol. Records
// inside a stream keep capture order; streams are ordered by the capture
// index of their first record.
func Streams(records []Record) []Stream {
	byKey := make(map[string]*Stream)
	var order []string

	for _, r := range records {
		if r.SrcIP == "" || r.DstIP == "" {
			continue
		}
		a := endpoint(r.SrcIP, r.SrcPort)
		b := endpoint(r.DstIP, r.DstPort)
		if b < a {
			a, b = b, a
		}
		key := fmt.Sprintf("%s|%s|%s", r.Protocol, a, b)

		st, ok := byKey[key]
		if !ok {
			st = &Stream{ID: key, EndpointA: a, EndpointB: b, Protocol: r.Protocol}
			byKey[key] = st
			order = append(order, key)
		}
		st.Records = append(st.Records, r)
	}

	out := make([]Stream, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Records[0].Index < out[j].Records[0].Index
	})
	return out
}

func endpoint(ip string, port int) string {
	if port == 0 {
		return ip
	}
	return fmt.Sprintf("%s:%d", ip, port)
}
