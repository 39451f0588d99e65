package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dashes upper", "00-1E-EC-26-D2-AC", "00:1e:ec:26:d2:ac"},
		{"already canonical", "26:02:06:49:6b:31", "26:02:06:49:6b:31"},
		{"surrounding space", "  AA:BB:CC:DD:EE:FF ", "aa:bb:cc:dd:ee:ff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMAC(tt.in))
		})
	}
}

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, "tcp", NormalizeAnswer("  TCP "))
	assert.Equal(t, "46.105.99.163", NormalizeAnswer("46.105.99.163"))
	assert.Equal(t, "a b c", NormalizeAnswer("A   b\tC"))
}

func TestValidIPv4(t *testing.T) {
	assert.True(t, ValidIPv4("192.168.1.66"))
	assert.True(t, ValidIPv4(" 10.0.0.1 "))
	assert.False(t, ValidIPv4("192.168.1"))
	assert.False(t, ValidIPv4("::1"))
	assert.False(t, ValidIPv4("not-an-ip"))
}

func TestParsePortSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []int
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"list", "80,22,23", []int{22, 23, 80}, false},
		{"range", "20-23", []int{20, 21, 22, 23}, false},
		{"mixed with dupes", "22,20-22", []int{20, 21, 22}, false},
		{"reversed range", "25-23", []int{23, 24, 25}, false},
		{"bad token", "22,abc", nil, true},
		{"out of range", "70000", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePortSpec(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name  string
		slice []string
		str   string
		want  bool
	}{
		{"empty slice", []string{}, "a", false},
		{"found first", []string{"a", "b", "c"}, "a", true},
		{"found last", []string{"a", "b", "c"}, "c", true},
		{"not found", []string{"a", "b", "c"}, "d", false},
		{"empty string in slice", []string{"a", "", "c"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(tt.slice, tt.str))
		})
	}
}

func TestAppendUnique(t *testing.T) {
	list := []string{"nmap"}
	list = AppendUnique(list, "wireshark")
	list = AppendUnique(list, "nmap")
	assert.Equal(t, []string{"nmap", "wireshark"}, list)
}
