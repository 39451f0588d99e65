// Package pcap decodes the classic libpcap capture format used by the
// forensic missions. Captures are small and fully in memory; parsing is
// bounds-checked everywhere because corrupted files are part of the
// curriculum, not an exceptional case.
package pcap

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"
)

const (
	// MagicNative is the little-endian microsecond magic.
	MagicNative = 0xA1B2C3D4
	// MagicSwapped is MagicNative as written by an opposite-endian host.
	MagicSwapped = 0xD4C3B2A1

	versionMajor = 2
	versionMinor = 4

	// LinkTypeEthernet is the only supported link layer.
	LinkTypeEthernet = 1

	globalHeaderLen = 24
	recordHeaderLen = 16

	// maxSaneSnapLen caps declared capture lengths regardless of the
	// file's snaplen field, which may itself be garbage.
	maxSaneSnapLen = 1 << 18
)

// CorruptError describes where and why a capture stopped parsing.
// Records preceding the corruption are still returned by Parse.
type CorruptError struct {
	Offset int    // byte offset of the offending structure
	Record int    // record index, -1 for the global header
	Reason string
}

func (e *CorruptError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("corrupt capture: %s (offset %d)", e.Reason, e.Offset)
	}
	return fmt.Sprintf("corrupt capture: record %d: %s (offset %d)", e.Record, e.Reason, e.Offset)
}

// Record is one captured packet plus the fields decoded from its payload.
// Records are immutable once parsed and keep capture order.
type Record struct {
	Index       int
	Timestamp   time.Time
	CapturedLen uint32
	OriginalLen uint32
	Payload     []byte

	// Derived link/network/transport fields. Zero values mean the layer
	// was absent or truncated.
	SrcMAC    string
	DstMAC    string
	EtherType uint16
	SrcIP     string
	DstIP     string
	Protocol  string
	SrcPort   int
	DstPort   int
	L4Payload []byte
}

// Parser decodes capture files.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser.
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse decodes raw into its packet records.
//
// Partial-parse policy: a bad global header yields no records; a bad record
// yields every record before it plus a *CorruptError for the offender.
// Parse never reads past a declared record length or the end of raw.
func (p *Parser) Parse(raw []byte) ([]Record, error) {
	if len(raw) < globalHeaderLen {
		return nil, &CorruptError{Offset: 0, Record: -1, Reason: "truncated global header"}
	}

	var order binary.ByteOrder
	magic := binary.LittleEndian.Uint32(raw[0:4])
	switch magic {
	case MagicNative:
		order = binary.LittleEndian
	case MagicSwapped:
		order = binary.BigEndian
	default:
		return nil, &CorruptError{Offset: 0, Record: -1,
			Reason: fmt.Sprintf("bad magic 0x%08X", magic)}
	}

	major := order.Uint16(raw[4:6])
	minor := order.Uint16(raw[6:8])
	if major != versionMajor || minor != versionMinor {
		return nil, &CorruptError{Offset: 4, Record: -1,
			Reason: fmt.Sprintf("unsupported version %d.%d", major, minor)}
	}

	snapLen := order.Uint32(raw[16:20])
	linkType := order.Uint32(raw[20:24])
	if linkType != LinkTypeEthernet {
		return nil, &CorruptError{Offset: 20, Record: -1,
			Reason: fmt.Sprintf("unsupported link type %d", linkType)}
	}
	if snapLen == 0 || snapLen > maxSaneSnapLen {
		snapLen = maxSaneSnapLen
	}

	var records []Record
	offset := globalHeaderLen
	for offset < len(raw) {
		idx := len(records)
		remaining := len(raw) - offset
		if remaining < recordHeaderLen {
			return records, &CorruptError{Offset: offset, Record: idx, Reason: "truncated record header"}
		}

		tsSec := order.Uint32(raw[offset : offset+4])
		tsUsec := order.Uint32(raw[offset+4 : offset+8])
		inclLen := order.Uint32(raw[offset+8 : offset+12])
		origLen := order.Uint32(raw[offset+12 : offset+16])

		if inclLen > snapLen {
			return records, &CorruptError{Offset: offset + 8, Record: idx,
				Reason: fmt.Sprintf("captured length %d exceeds snap length %d", inclLen, snapLen)}
		}
		if int(inclLen) > remaining-recordHeaderLen {
			return records, &CorruptError{Offset: offset + 8, Record: idx,
				Reason: fmt.Sprintf("captured length %d exceeds remaining %d bytes", inclLen, remaining-recordHeaderLen)}
		}

		payload := raw[offset+recordHeaderLen : offset+recordHeaderLen+int(inclLen)]
		rec := Record{
			Index:       idx,
			Timestamp:   time.Unix(int64(tsSec), int64(tsUsec)*1000).UTC(),
			CapturedLen: inclLen,
			OriginalLen: origLen,
			Payload:     append([]byte(nil), payload...),
		}
		decodeLayers(&rec)
		records = append(records, rec)

		offset += recordHeaderLen + int(inclLen)
	}

	p.logger.Debug("capture parsed", "records", len(records), "bytes", len(raw))
	return records, nil
}
