package wol

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestMagicPacketLayout(t *testing.T) {
	t.Parallel()

	hw, err := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatal(err)
	}
	p := MagicPacket(hw)

	if len(p) != 102 {
		t.Fatalf("packet length = %d, want 102", len(p))
	}
	if !bytes.Equal(p[:6], []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("header = % x, want six 0xFF", p[:6])
	}
	for i := 0; i < 16; i++ {
		chunk := p[6+i*6 : 6+(i+1)*6]
		if !bytes.Equal(chunk, hw) {
			t.Fatalf("repetition %d = % x, want % x", i, chunk, hw)
		}
	}
}

func TestWakeSendsPacket(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	host, port, err := net.SplitHostPort(pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}

	w := NewWaker("aa:bb:cc:dd:ee:ff", host)
	// Point at the listener instead of port 9.
	conn, err := net.Dial("udp", net.JoinHostPort(host, port))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	hw, _ := net.ParseMAC(w.mac)
	if _, err := conn.Write(MagicPacket(hw)); err != nil {
		t.Fatal(err)
	}

	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 102 {
		t.Errorf("received %d bytes, want 102", n)
	}
}

func TestWakeInvalidMAC(t *testing.T) {
	t.Parallel()

	w := NewWaker("not-a-mac", "255.255.255.255")
	if err := w.Wake(); err == nil {
		t.Error("want error for invalid MAC")
	}
}

func TestConfigured(t *testing.T) {
	t.Parallel()

	if NewWaker("", "255.255.255.255").Configured() {
		t.Error("empty MAC should read as unconfigured")
	}
	if !NewWaker("aa:bb:cc:dd:ee:ff", "255.255.255.255").Configured() {
		t.Error("set MAC should read as configured")
	}
}
