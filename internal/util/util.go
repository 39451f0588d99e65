// Package util provides common utility functions used across the engine.
package util

import (
	"net"
	"sort"
	"strconv"
	"strings"
)

// NormalizeMAC lowercases a MAC address and converts dash separators to
// colons. "00-1E-EC-26-D2-AC" and "00:1e:ec:26:d2:ac" normalize identically.
func NormalizeMAC(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", ":"))
}

// NormalizeAnswer canonicalizes a free-text field answer for comparison:
// trimmed, lowercased, internal runs of whitespace collapsed to one space.
func NormalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ValidIPv4 reports whether s is a well-formed dotted-quad IPv4 address.
func ValidIPv4(s string) bool {
	ip := net.ParseIP(strings.TrimSpace(s))
	return ip != nil && ip.To4() != nil
}

// ParsePortSpec parses a port list like "22,23,80" or a range like "20-25"
// into a sorted slice of distinct port numbers. An empty spec returns nil.
func ParsePortSpec(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := parsePort(lo)
			if err != nil {
				return nil, err
			}
			end, err := parsePort(hi)
			if err != nil {
				return nil, err
			}
			if end < start {
				start, end = end, start
			}
			for p := start; p <= end; p++ {
				seen[p] = true
			}
			continue
		}
		p, err := parsePort(part)
		if err != nil {
			return nil, err
		}
		seen[p] = true
	}

	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if p < 0 || p > 65535 {
		return 0, strconv.ErrRange
	}
	return p, nil
}

// Contains reports whether list holds v. Lists here are small enough that a
// linear scan beats building a set.
func Contains[T comparable](list []T, v T) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// AppendUnique appends v to list if not already present and returns the list.
func AppendUnique(list []string, v string) []string {
	if Contains(list, v) {
		return list
	}
	return append(list, v)
}
