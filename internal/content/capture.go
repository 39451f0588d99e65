// internal/content/capture.go
package content

import (
	"github.com/dohaibbur/CYBER-HERO/internal/pcap"
)

// IP protocol numbers for fixture frames.
const (
	protoTCP = 6
	protoUDP = 17
)

// generators produce binary host file content referenced from topology
// YAML via "@generate:<name>".
var generators = map[string]func() []byte{
	"threat-capture": threatCapture,
}

// missionExtras are evidence files generated into a mission's folder.
var missionExtras = map[string][]struct {
	name         string
	requiredTool string
	gen          func() []byte
}{
	"mission_forensics": {
		{name: "suspicious.pcap", requiredTool: "analyzer", gen: forensicsCapture},
	},
}

var (
	macCamera    = [6]byte{0x26, 0x02, 0x06, 0x49, 0x6b, 0x31}
	macRouter    = [6]byte{0x00, 0x1e, 0xec, 0x26, 0xd2, 0xac}
	macLaptop    = [6]byte{0xb8, 0x27, 0xeb, 0x4f, 0x11, 0x32}
	macPrinter   = [6]byte{0x00, 0x80, 0x77, 0x5c, 0x21, 0x9e}
	macBroadcast = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	ipCamera    = [4]byte{192, 168, 1, 66}
	ipLaptop    = [4]byte{192, 168, 1, 20}
	ipPrinter   = [4]byte{192, 168, 1, 40}
	ipBroadcast = [4]byte{192, 168, 1, 255}
	ipExternal  = [4]byte{46, 105, 99, 163}
)

// threatCapture is what the compromised camera recorded about itself:
// telnet probing, a port sweep, broadcast discovery, a printer probe and a
// bulk upload to an outside address. Fully deterministic.
func threatCapture() []byte {
	var packets []pcap.Packet
	ts := uint32(1700000000)
	add := func(payload []byte) {
		packets = append(packets, pcap.Packet{TsSec: ts, Payload: payload})
		ts++
	}

	// telnet probes against the laptop
	add(pcap.EthernetFrame(macCamera, macLaptop, ipCamera, ipLaptop, protoTCP, 40100, 23, []byte("root\r\n")))
	add(pcap.EthernetFrame(macCamera, macLaptop, ipCamera, ipLaptop, protoTCP, 40101, 23, nil))

	// port sweep against the laptop
	for _, port := range []uint16{21, 22, 25, 80, 443, 445} {
		add(pcap.EthernetFrame(macCamera, macLaptop, ipCamera, ipLaptop, protoTCP, 40200, port, nil))
	}

	// broadcast discovery
	add(pcap.EthernetFrame(macCamera, macBroadcast, ipCamera, ipBroadcast, protoUDP, 137, 137, []byte("who is out there")))

	// raw printing port probe
	add(pcap.EthernetFrame(macCamera, macPrinter, ipCamera, ipPrinter, protoTCP, 40300, 9100, nil))

	// bulk upload to an outside host, well past the exfiltration threshold
	chunk := make([]byte, 1400)
	for i := range chunk {
		chunk[i] = byte(i)
	}
	for i := 0; i < 40; i++ {
		add(pcap.EthernetFrame(macCamera, macRouter, ipCamera, ipExternal, protoTCP, 40400, 443, chunk))
	}

	return pcap.Marshal(packets)
}

// forensicsCapture holds the graded frame as packet 3: an outside TCP
// segment to 192.168.4.2, 66 bytes on the wire.
func forensicsCapture() []byte {
	inside := [4]byte{192, 168, 4, 2}
	macInside := [6]byte{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}

	// 14 ethernet + 20 ip + 20 tcp + 12 payload = 66 byte frame
	graded := pcap.EthernetFrame(macCamera, macRouter, ipExternal, inside, protoTCP, 443, 51234, make([]byte, 12))

	return pcap.Marshal([]pcap.Packet{
		{TsSec: 1700003600, Payload: pcap.EthernetFrame(macInside, macRouter, inside, ipExternal, protoTCP, 51234, 443, []byte("GET / HTTP/1.1\r\n"))},
		{TsSec: 1700003601, Payload: pcap.EthernetFrame(macCamera, macRouter, ipExternal, inside, protoTCP, 443, 51234, make([]byte, 300))},
		{TsSec: 1700003602, Payload: graded},
		{TsSec: 1700003603, Payload: pcap.EthernetFrame(macInside, macRouter, inside, ipExternal, protoTCP, 51234, 443, nil)},
		{TsSec: 1700003604, Payload: pcap.EthernetFrame(macInside, macBroadcast, inside, [4]byte{192, 168, 4, 255}, protoUDP, 137, 137, []byte("name query"))},
	})
}
