package adbus

import "testing"

func TestParseAddresses(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
		wantLen int
	}{
		{"unix path", "unix:path=/var/run/dbus/system_bus_socket", false, 1},
		{"unix abstract", "unix:abstract=/tmp/dbus-test", false, 1},
		{"tcp", "tcp:host=127.0.0.1,port=1234", false, 1},
		{"multiple entries", "unix:path=/a;tcp:host=127.0.0.1,port=1234", false, 2},
		{"empty", "", true, 0},
		{"missing transport prefix", "path=/a", true, 0},
		{"malformed kv pair", "unix:path", true, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAddresses(tc.addr)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseAddresses(%q) error = %v, wantErr %v", tc.addr, err, tc.wantErr)
			}
			if err == nil && len(got) != tc.wantLen {
				t.Fatalf("ParseAddresses(%q) = %d entries, want %d", tc.addr, len(got), tc.wantLen)
			}
		})
	}
}

func TestParseOneAddressFields(t *testing.T) {
	a, err := parseOneAddress("unix:path=/tmp/sock,guid=abc123")
	if err != nil {
		t.Fatalf("parseOneAddress: %v", err)
	}
	if a.Transport != "unix" {
		t.Errorf("Transport = %q, want unix", a.Transport)
	}
	if a.Params["path"] != "/tmp/sock" {
		t.Errorf("Params[path] = %q, want /tmp/sock", a.Params["path"])
	}
	if a.Params["guid"] != "abc123" {
		t.Errorf("Params[guid] = %q, want abc123", a.Params["guid"])
	}
}

func TestUnescapeAddressValue(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"with%20space", "with space", false},
		{"%2F", "/", false},
		{"trunc%2", "", true},
		{"bad%ZZescape", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := unescapeAddressValue(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("unescapeAddressValue(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if err == nil && got != tc.want {
				t.Errorf("unescapeAddressValue(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestAddressTCPAndUnixDecode(t *testing.T) {
	a, err := parseOneAddress("tcp:host=localhost,port=9999,family=ipv4")
	if err != nil {
		t.Fatalf("parseOneAddress: %v", err)
	}
	tcp, err := a.TCP()
	if err != nil {
		t.Fatalf("TCP(): %v", err)
	}
	if tcp.Host != "localhost" || tcp.Port != "9999" || tcp.Family != "ipv4" {
		t.Errorf("TCP() = %+v, want {localhost 9999 ipv4}", tcp)
	}

	u, err := parseOneAddress("unix:path=/tmp/sock")
	if err != nil {
		t.Fatalf("parseOneAddress: %v", err)
	}
	unix, err := u.Unix()
	if err != nil {
		t.Fatalf("Unix(): %v", err)
	}
	if unix.Path != "/tmp/sock" {
		t.Errorf("Unix().Path = %q, want /tmp/sock", unix.Path)
	}
}
