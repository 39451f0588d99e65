package pcap

import (
	"encoding/binary"
	"fmt"
)

const (
	etherTypeIPv4 = 0x0800
	etherTypeARP  = 0x0806

	ipProtoICMP = 1
	ipProtoTCP  = 6
	ipProtoUDP  = 17
)

// decodeLayers fills a record's derived fields from its payload. Decoding
// stops cleanly at whatever layer the captured bytes run out; a record with
// a short payload is still a valid record.
func decodeLayers(r *Record) {
	p := r.Payload
	if len(p) < 14 {
		return
	}
	r.DstMAC = formatMAC(p[0:6])
	r.SrcMAC = formatMAC(p[6:12])
	r.EtherType = binary.BigEndian.Uint16(p[12:14])

	switch r.EtherType {
	case etherTypeARP:
		r.Protocol = "ARP"
		return
	case etherTypeIPv4:
	default:
		r.Protocol = "ETH"
		return
	}

	ip := p[14:]
	if len(ip) < 20 {
		r.Protocol = "IPv4"
		return
	}
	ihl := int(ip[0]&0x0f) * 4
	if ihl < 20 || len(ip) < ihl {
		r.Protocol = "IPv4"
		return
	}
	r.SrcIP = formatIPv4(ip[12:16])
	r.DstIP = formatIPv4(ip[16:20])

	transport := ip[ihl:]
	switch ip[9] {
	case ipProtoICMP:
		r.Protocol = "ICMP"
		r.L4Payload = transport
	case ipProtoTCP:
		r.Protocol = "TCP"
		if len(transport) < 20 {
			return
		}
		r.SrcPort = int(binary.BigEndian.Uint16(transport[0:2]))
		r.DstPort = int(binary.BigEndian.Uint16(transport[2:4]))
		dataOff := int(transport[12]>>4) * 4
		if dataOff >= 20 && len(transport) >= dataOff {
			r.L4Payload = transport[dataOff:]
		}
	case ipProtoUDP:
		r.Protocol = "UDP"
		if len(transport) < 8 {
			return
		}
		r.SrcPort = int(binary.BigEndian.Uint16(transport[0:2]))
		r.DstPort = int(binary.BigEndian.Uint16(transport[2:4]))
		r.L4Payload = transport[8:]
	default:
		r.Protocol = "IPv4"
	}
}

func formatMAC(b []byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5])
}

func formatIPv4(b []byte) string {
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}
