package pcap

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// CompareResult reports the outcome of a source-vs-capture comparison.
type CompareResult struct {
	// Differences holds indices (into the source stream) of packets whose
	// captured payload differs.
	Differences []int
	// Compared is the number of packets actually compared.
	Compared int
}

// Equal reports whether the compared packets all matched.
func (r CompareResult) Equal() bool {
	return r.Compared > 0 && len(r.Differences) == 0
}

// isUDPToPort reports whether the packet is UDP addressed to the port of
// interest. The capture side may contain unrelated traffic; only matching
// packets take part in the comparison.
func isUDPToPort(data []byte, dport uint16) bool {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return false
	}
	udp := udpLayer.(*layers.UDP)
	return uint16(udp.DstPort) == dport
}

// Compare matches the packets of a source capture file against a captured
// file, filtering the captured side by UDP destination port (dport 0 keeps
// everything). maxPackets 0 compares everything. Runs of the captured file
// ending before the source is exhausted surface as io.ErrUnexpectedEOF.
func Compare(srcPath, capPath string, maxPackets int, dport uint16) (CompareResult, error) {
	var result CompareResult

	src, err := OpenReader(srcPath)
	if err != nil {
		return result, err
	}
	defer src.Close()
	captured, err := OpenReader(capPath)
	if err != nil {
		return result, err
	}
	defer captured.Close()

	for {
		srcPayload, _, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, err
		}

		var capPayload []byte
		for {
			capPayload, _, err = captured.Next()
			if err == io.EOF {
				return result, fmt.Errorf("%s ran out of packets after %d compared: %w",
					capPath, result.Compared, io.ErrUnexpectedEOF)
			}
			if err != nil {
				return result, err
			}
			if dport == 0 || isUDPToPort(capPayload, dport) {
				break
			}
		}

		if !bytes.Equal(srcPayload, capPayload) {
			result.Differences = append(result.Differences, result.Compared)
		}
		result.Compared++
		if maxPackets > 0 && result.Compared >= maxPackets {
			break
		}
	}
	return result, nil
}
