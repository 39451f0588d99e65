package pcap

import (
	"bytes"
	"encoding/binary"
)

// Packet is the input to Marshal: a timestamped raw Ethernet frame.
type Packet struct {
	TsSec   uint32
	TsUsec  uint32
	Payload []byte
}

// Marshal builds a little-endian capture file from raw frames. The content
// loader uses it to generate mission evidence captures; the tests use it to
// build fixtures.
func Marshal(packets []Packet) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian

	hdr := make([]byte, globalHeaderLen)
	le.PutUint32(hdr[0:4], MagicNative)
	le.PutUint16(hdr[4:6], versionMajor)
	le.PutUint16(hdr[6:8], versionMinor)
	// thiszone and sigfigs stay zero
	le.PutUint32(hdr[16:20], 65535)
	le.PutUint32(hdr[20:24], LinkTypeEthernet)
	buf.Write(hdr)

	rec := make([]byte, recordHeaderLen)
	for _, p := range packets {
		le.PutUint32(rec[0:4], p.TsSec)
		le.PutUint32(rec[4:8], p.TsUsec)
		le.PutUint32(rec[8:12], uint32(len(p.Payload)))
		le.PutUint32(rec[12:16], uint32(len(p.Payload)))
		buf.Write(rec)
		buf.Write(p.Payload)
	}
	return buf.Bytes()
}

// EthernetFrame assembles a raw frame for fixture captures.
// proto is ipProtoTCP or ipProtoUDP; payload becomes the transport payload.
func EthernetFrame(srcMAC, dstMAC [6]byte, srcIP, dstIP [4]byte, proto byte, srcPort, dstPort uint16, payload []byte) []byte {
	var transport []byte
	switch proto {
	case ipProtoTCP:
		transport = make([]byte, 20+len(payload))
		binary.BigEndian.PutUint16(transport[0:2], srcPort)
		binary.BigEndian.PutUint16(transport[2:4], dstPort)
		transport[12] = 5 << 4 // data offset: 5 words
		transport[13] = 0x18   // PSH+ACK
		copy(transport[20:], payload)
	case ipProtoUDP:
		transport = make([]byte, 8+len(payload))
		binary.BigEndian.PutUint16(transport[0:2], srcPort)
		binary.BigEndian.PutUint16(transport[2:4], dstPort)
		binary.BigEndian.PutUint16(transport[4:6], uint16(8+len(payload)))
		copy(transport[8:], payload)
	default:
		transport = payload
	}

	ip := make([]byte, 20+len(transport))
	ip[0] = 0x45 // v4, ihl 5
	binary.BigEndian.PutUint16(ip[2:4], uint16(len(ip)))
	ip[8] = 64 // ttl
	ip[9] = proto
	copy(ip[12:16], srcIP[:])
	copy(ip[16:20], dstIP[:])
	copy(ip[20:], transport)

	frame := make([]byte, 14+len(ip))
	copy(frame[0:6], dstMAC[:])
	copy(frame[6:12], srcMAC[:])
	binary.BigEndian.PutUint16(frame[12:14], etherTypeIPv4)
	copy(frame[14:], ip)
	return frame
}
