// Package wol sends wake-on-LAN magic packets.
package wol

import (
	"fmt"
	"net"
)

// Waker wakes a single configured machine over broadcast UDP.
type Waker struct {
	mac       string
	broadcast string
}

// NewWaker returns a Waker for the given MAC, broadcasting to addr
// (e.g. "192.168.1.255"). An empty MAC yields an unconfigured Waker.
func NewWaker(mac, broadcast string) *Waker {
	return &Waker{mac: mac, broadcast: broadcast}
}

// Configured reports whether a target MAC is set.
func (w *Waker) Configured() bool { return w.mac != "" }

// Wake sends the magic packet: six 0xFF bytes followed by the MAC repeated
// sixteen times, to UDP port 9 on the broadcast address.
func (w *Waker) Wake() error {
	hw, err := net.ParseMAC(w.mac)
	if err != nil {
		return fmt.Errorf("parse mac %q: %w", w.mac, err)
	}
	if len(hw) != 6 {
		return fmt.Errorf("mac %q: want 6 bytes, got %d", w.mac, len(hw))
	}

	packet := MagicPacket(hw)

	conn, err := net.Dial("udp", net.JoinHostPort(w.broadcast, "9"))
	if err != nil {
		return fmt.Errorf("dial broadcast: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("send magic packet: %w", err)
	}
	return nil
}

// MagicPacket builds the 102-byte wake-on-LAN frame for hw.
func MagicPacket(hw net.HardwareAddr) []byte {
	packet := make([]byte, 0, 6+16*6)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hw...)
	}
	return packet
}
