package adbus

import (
	"net"
	"path/filepath"
	"testing"
)

func TestDialAddressConnectsToUnixSocket(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		close(accepted)
	}()

	addrs, err := ParseAddresses("unix:path=" + sockPath)
	if err != nil {
		t.Fatalf("ParseAddresses: %v", err)
	}

	transport, err := DialAddress(addrs)
	if err != nil {
		t.Fatalf("DialAddress: %v", err)
	}
	defer transport.Close()

	<-accepted
}

func TestDialAddressFallsThroughOnFailure(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	addrs, err := ParseAddresses("unix:path=" + filepath.Join(dir, "nonexistent.sock") + ";unix:path=" + sockPath)
	if err != nil {
		t.Fatalf("ParseAddresses: %v", err)
	}

	transport, err := DialAddress(addrs)
	if err != nil {
		t.Fatalf("DialAddress: %v", err)
	}
	transport.Close()
}

func TestDialAddressUnsupportedTransport(t *testing.T) {
	addrs, err := ParseAddresses("launchd:env=DBUS_LAUNCHD_SESSION_BUS_SOCKET")
	if err != nil {
		t.Fatalf("ParseAddresses: %v", err)
	}
	if _, err := DialAddress(addrs); err == nil {
		t.Fatal("DialAddress with unsupported transport: want error, got nil")
	}
}

func TestDialAddressUnixMissingPathAndAbstract(t *testing.T) {
	addrs, err := ParseAddresses("unix:guid=abc")
	if err != nil {
		t.Fatalf("ParseAddresses: %v", err)
	}
	if _, err := DialAddress(addrs); err == nil {
		t.Fatal("DialAddress with unix address lacking path/abstract: want error, got nil")
	}
}
