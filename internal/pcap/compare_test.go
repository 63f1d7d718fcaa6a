package pcap

import (
	"io"
	"net"
	"path/filepath"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/ptp"
)

// makeUDPPacket serializes a full Ethernet/IPv4/UDP frame to the port.
func makeUDPPacket(t *testing.T, dport uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0xDC, 0x3C, 0xF6, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0xDC, 0x3C, 0xF6, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
	udp := &layers.UDP{SrcPort: 4000, DstPort: layers.UDPPort(dport)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func TestCompareIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pcap")
	captured := filepath.Join(dir, "cap.pcap")
	payloads := makePayloads(5, 200)
	writeTestFile(t, src, payloads, ptp.Timestamp{Seconds: 1})
	writeTestFile(t, captured, payloads, ptp.Timestamp{Seconds: 2})

	result, err := Compare(src, captured, 0, 0)
	require.NoError(t, err)
	assert.True(t, result.Equal())
	assert.Equal(t, 5, result.Compared)
}

func TestCompareReportsDifferences(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pcap")
	captured := filepath.Join(dir, "cap.pcap")

	srcPayloads := makePayloads(4, 100)
	capPayloads := makePayloads(4, 100)
	capPayloads[1] = append([]byte(nil), capPayloads[1]...)
	capPayloads[1][50] ^= 0xFF
	writeTestFile(t, src, srcPayloads, ptp.Timestamp{Seconds: 1})
	writeTestFile(t, captured, capPayloads, ptp.Timestamp{Seconds: 1})

	result, err := Compare(src, captured, 0, 0)
	require.NoError(t, err)
	assert.False(t, result.Equal())
	assert.Equal(t, []int{1}, result.Differences)
	assert.Equal(t, 4, result.Compared)
}

func TestCompareMaxPackets(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pcap")
	captured := filepath.Join(dir, "cap.pcap")
	writeTestFile(t, src, makePayloads(10, 64), ptp.Timestamp{Seconds: 1})
	writeTestFile(t, captured, makePayloads(10, 64), ptp.Timestamp{Seconds: 1})

	result, err := Compare(src, captured, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Compared)
}

func TestCompareCapturedRunsShort(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pcap")
	captured := filepath.Join(dir, "cap.pcap")
	writeTestFile(t, src, makePayloads(5, 64), ptp.Timestamp{Seconds: 1})
	writeTestFile(t, captured, makePayloads(2, 64), ptp.Timestamp{Seconds: 1})

	result, err := Compare(src, captured, 0, 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 2, result.Compared)
}

// The port filter drops interleaved traffic to other ports before the
// packet-by-packet comparison.
func TestCompareFiltersByPort(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pcap")
	captured := filepath.Join(dir, "cap.pcap")

	wanted := [][]byte{
		makeUDPPacket(t, 7200, []byte("first")),
		makeUDPPacket(t, 7200, []byte("second")),
	}
	noise := [][]byte{
		makeUDPPacket(t, 9999, []byte("stray")),
		{0x01, 0x02, 0x03, 0x04}, // not even Ethernet/IP
	}
	writeTestFile(t, src, wanted, ptp.Timestamp{Seconds: 1})
	writeTestFile(t, captured, [][]byte{noise[0], wanted[0], noise[1], wanted[1]},
		ptp.Timestamp{Seconds: 1})

	result, err := Compare(src, captured, 0, 7200)
	require.NoError(t, err)
	assert.True(t, result.Equal())
	assert.Equal(t, 2, result.Compared)
}
