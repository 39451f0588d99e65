package pcap

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	macRouter   = [6]byte{0x00, 0x1e, 0xec, 0x26, 0xd2, 0xac}
	macAttacker = [6]byte{0x26, 0x02, 0x06, 0x49, 0x6b, 0x31}
	macBcast    = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	ipAttacker = [4]byte{192, 168, 1, 66}
	ipVictim   = [4]byte{192, 168, 4, 2}
	ipExternal = [4]byte{46, 105, 99, 163}
	ipBcast    = [4]byte{192, 168, 1, 255}
)

func fixtureCapture(t *testing.T) []byte {
	t.Helper()
	packets := []Packet{
		{TsSec: 100, TsUsec: 0, Payload: EthernetFrame(macAttacker, macRouter, ipAttacker, ipVictim, ipProtoTCP, 51000, 23, []byte("login"))},
		{TsSec: 100, TsUsec: 500, Payload: EthernetFrame(macRouter, macAttacker, ipVictim, ipAttacker, ipProtoTCP, 23, 51000, []byte("denied"))},
		{TsSec: 101, TsUsec: 0, Payload: EthernetFrame(macAttacker, macBcast, ipAttacker, ipBcast, ipProtoUDP, 137, 137, []byte("whois"))},
	}
	return Marshal(packets)
}

func TestParse_ValidCapture(t *testing.T) {
	p := New(nil)

	records, err := p.Parse(fixtureCapture(t))
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "26:02:06:49:6b:31", first.SrcMAC)
	assert.Equal(t, "00:1e:ec:26:d2:ac", first.DstMAC)
	assert.Equal(t, "192.168.1.66", first.SrcIP)
	assert.Equal(t, "192.168.4.2", first.DstIP)
	assert.Equal(t, "TCP", first.Protocol)
	assert.Equal(t, 23, first.DstPort)
	assert.Equal(t, []byte("login"), first.L4Payload)

	assert.Equal(t, "UDP", records[2].Protocol)
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", records[2].DstMAC)

	// capture order preserved
	for i, r := range records {
		assert.Equal(t, i, r.Index)
	}
}

func TestParse_SwappedByteOrder(t *testing.T) {
	raw := fixtureCapture(t)

	// rewrite the whole file big-endian
	be := make([]byte, len(raw))
	copy(be, raw)
	binary.BigEndian.PutUint32(be[0:4], MagicNative)
	binary.BigEndian.PutUint16(be[4:6], versionMajor)
	binary.BigEndian.PutUint16(be[6:8], versionMinor)
	binary.BigEndian.PutUint32(be[16:20], 65535)
	binary.BigEndian.PutUint32(be[20:24], LinkTypeEthernet)
	off := globalHeaderLen
	for off < len(be) {
		for f := 0; f < 4; f++ {
			v := binary.LittleEndian.Uint32(raw[off+f*4 : off+f*4+4])
			binary.BigEndian.PutUint32(be[off+f*4:off+f*4+4], v)
		}
		incl := binary.LittleEndian.Uint32(raw[off+8 : off+12])
		off += recordHeaderLen + int(incl)
	}

	records, err := New(nil).Parse(be)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, "192.168.1.66", records[0].SrcIP)
}

func TestParse_CorruptHeaders(t *testing.T) {
	valid := fixtureCapture(t)

	tests := []struct {
		name   string
		mangle func([]byte) []byte
	}{
		{"empty input", func(b []byte) []byte { return nil }},
		{"short header", func(b []byte) []byte { return b[:10] }},
		{"bad magic", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0:4], 0xDEADBEEF)
			return b
		}},
		{"bad version", func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[4:6], 9)
			return b
		}},
		{"bad link type", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[20:24], 105)
			return b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := append([]byte(nil), valid...)
			records, err := New(nil).Parse(tt.mangle(raw))

			var corrupt *CorruptError
			require.ErrorAs(t, err, &corrupt)
			assert.Equal(t, -1, corrupt.Record, "header corruption reports record -1")
			assert.Empty(t, records, "bad global header yields no records")
		})
	}
}

func TestParse_TruncatedTrailingRecord(t *testing.T) {
	raw := fixtureCapture(t)

	// chop the last record's payload short
	truncated := raw[:len(raw)-3]

	records, err := New(nil).Parse(truncated)

	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 2, corrupt.Record, "only the trailing record is corrupt")
	require.Len(t, records, 2, "leading valid records survive")
	assert.Equal(t, "TCP", records[0].Protocol)
}

func TestParse_LyingLengthField(t *testing.T) {
	raw := fixtureCapture(t)

	// claim the first record is much larger than the buffer
	binary.LittleEndian.PutUint32(raw[globalHeaderLen+8:globalHeaderLen+12], 1<<20)

	records, err := New(nil).Parse(raw)

	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 0, corrupt.Record)
	assert.Empty(t, records)
}

func TestParse_GarbageRecordPayload(t *testing.T) {
	// a record whose payload is junk still parses as a record
	raw := Marshal([]Packet{{TsSec: 1, Payload: []byte{0x01, 0x02, 0x03}}})

	records, err := New(nil).Parse(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Protocol, "undecodable payload leaves derived fields zero")
	assert.Equal(t, uint32(3), records[0].CapturedLen)
}

func TestParse_NeverReadsPastDeclaredLength(t *testing.T) {
	// record payload followed by trailing garbage shorter than a header
	raw := Marshal([]Packet{{TsSec: 1, Payload: []byte("abcd")}})
	raw = append(raw, 0xEE, 0xEE)

	records, err := New(nil).Parse(raw)

	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
	require.Len(t, records, 1)
	assert.Equal(t, []byte("abcd"), records[0].Payload)
}

func TestStreams_GroupsByEndpointPair(t *testing.T) {
	records, err := New(nil).Parse(fixtureCapture(t))
	require.NoError(t, err)

	streams := Streams(records)
	require.Len(t, streams, 2)

	telnet := streams[0]
	assert.Equal(t, "TCP", telnet.Protocol)
	assert.Len(t, telnet.Records, 2, "both directions in one stream")
	assert.Equal(t, "192.168.1.66:51000", telnet.EndpointA)
	assert.Equal(t, "192.168.4.2:23", telnet.EndpointB)
	assert.Equal(t, len("login")+len("denied"), telnet.Bytes())

	assert.Equal(t, "UDP", streams[1].Protocol)
}

func TestStreams_TimeOrderWithinStream(t *testing.T) {
	records, err := New(nil).Parse(fixtureCapture(t))
	require.NoError(t, err)

	for _, st := range Streams(records) {
		for i := 1; i < len(st.Records); i++ {
			assert.LessOrEqual(t, st.Records[i-1].Index, st.Records[i].Index)
		}
	}
}

func TestAnalyzeThreats(t *testing.T) {
	var packets []Packet
	// telnet probe
	packets = append(packets, Packet{TsSec: 10, Payload: EthernetFrame(macAttacker, macRouter, ipAttacker, ipVictim, ipProtoTCP, 40000, 23, nil)})
	// port sweep: 6 distinct ports on one victim
	for port := 8000; port < 8006; port++ {
		packets = append(packets, Packet{TsSec: 11, Payload: EthernetFrame(macAttacker, macRouter, ipAttacker, ipVictim, ipProtoTCP, 40001, uint16(port), nil)})
	}
	// broadcast discovery
	packets = append(packets, Packet{TsSec: 12, Payload: EthernetFrame(macAttacker, macBcast, ipAttacker, ipBcast, ipProtoUDP, 137, 137, nil)})
	// printer probe
	packets = append(packets, Packet{TsSec: 13, Payload: EthernetFrame(macAttacker, macRouter, ipAttacker, ipVictim, ipProtoTCP, 40002, 9100, nil)})
	// exfiltration: 60 KiB outbound in 4 chunks
	chunk := make([]byte, 15*1024)
	for i := 0; i < 4; i++ {
		packets = append(packets, Packet{TsSec: uint32(14 + i), Payload: EthernetFrame(macAttacker, macRouter, ipAttacker, ipExternal, ipProtoTCP, 40003, 443, chunk)})
	}

	records, err := New(nil).Parse(Marshal(packets))
	require.NoError(t, err)

	findings := AnalyzeThreats(records)

	kinds := make(map[string]Finding)
	for _, f := range findings {
		kinds[f.Kind] = f
	}
	require.Contains(t, kinds, ThreatTelnetProbe)
	require.Contains(t, kinds, ThreatPortSweep)
	require.Contains(t, kinds, ThreatDiscovery)
	require.Contains(t, kinds, ThreatPrinterProbe)
	require.Contains(t, kinds, ThreatBulkTransfer)

	assert.Equal(t, "192.168.1.66", kinds[ThreatTelnetProbe].Source)
	assert.Equal(t, "46.105.99.163", kinds[ThreatBulkTransfer].Target)
	assert.NotEmpty(t, kinds[ThreatPortSweep].Records)

	// same capture, same findings
	assert.Equal(t, findings, AnalyzeThreats(records))
}

func TestAnalyzeThreats_CleanCapture(t *testing.T) {
	packets := []Packet{
		{TsSec: 1, Payload: EthernetFrame(macRouter, macAttacker, ipVictim, ipAttacker, ipProtoTCP, 443, 50000, []byte("ok"))},
	}
	records, err := New(nil).Parse(Marshal(packets))
	require.NoError(t, err)
	assert.Empty(t, AnalyzeThreats(records))
}
