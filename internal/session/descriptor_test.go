package session

import "testing"

func TestParseProtocol(t *testing.T) {
	cases := map[string]Protocol{
		"ssh":    ProtocolSSH,
		"SFTP":   ProtocolSFTP,
		" ftp ":  ProtocolFTP,
		"telnet": ProtocolSSH,
		"":       ProtocolSSH,
		"local":  ProtocolNone,
		"none":   ProtocolNone,
	}
	for in, want := range cases {
		if got := ParseProtocol(in); got != want {
			t.Errorf("ParseProtocol(%q) = %q, want %q", in, got, want)
		}
	}
	if !ProtocolSFTP.Remote() || ProtocolFTP.Remote() || ProtocolNone.Remote() {
		t.Error("only ssh and sftp run remote shells")
	}
}

func TestDescriptor_AddressAndValidate(t *testing.T) {
	d := ConnectionDescriptor{Host: "example.com", Username: "root"}
	if got := d.Address(); got != "example.com:22" {
		t.Errorf("Address() = %q", got)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	v6 := ConnectionDescriptor{Host: "::1", Port: 2222, Username: "root"}
	if got := v6.Address(); got != "[::1]:2222" {
		t.Errorf("Address() = %q", got)
	}

	for _, bad := range []ConnectionDescriptor{
		{Username: "root"},
		{Host: "h"},
		{Host: "h", Username: "root", Port: 70000},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", bad)
		}
	}
}

func TestDescriptor_Label(t *testing.T) {
	d := ConnectionDescriptor{Host: "h", Port: 2200, Username: "u"}
	if got := d.label(); got != "u@h:2200" {
		t.Errorf("label() = %q", got)
	}
	d.Name = "prod"
	if got := d.label(); got != "prod u@h:2200" {
		t.Errorf("label() = %q", got)
	}
}
