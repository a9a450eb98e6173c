package util

import "testing"

func TestParseIPWithMask(t *testing.T) {
	tests := []struct {
		name     string
		cidr     string
		wantIP   string
		wantMask int
		wantErr  bool
	}{
		{"valid /24", "10.0.0.1/24", "10.0.0.1", 24, false},
		{"valid /31", "10.1.0.0/31", "10.1.0.0", 31, false},
		{"no mask", "10.0.0.1", "", 0, true},
		{"garbage", "not-an-ip/24", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip, mask, err := ParseIPWithMask(tt.cidr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIPWithMask(%q) error = %v, wantErr %v", tt.cidr, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ip.String() != tt.wantIP || mask != tt.wantMask {
				t.Errorf("ParseIPWithMask(%q) = %s/%d, want %s/%d", tt.cidr, ip, mask, tt.wantIP, tt.wantMask)
			}
		})
	}
}

func TestInterfaceAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		subnet  string
		want    string
		wantErr bool
	}{
		{"cidr subnet", "192.168.10.1", "192.168.10.0/24", "192.168.10.1/24", false},
		{"dotted mask", "10.20.0.5", "255.255.255.128", "10.20.0.5/25", false},
		{"host mask", "10.0.0.1", "255.255.255.255", "10.0.0.1/32", false},
		{"bad address", "10.0.0", "255.255.255.0", "", true},
		{"bad mask", "10.0.0.1", "255.0.255.0", "", true},
		{"bad cidr", "10.0.0.1", "10.0.0.0/33", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InterfaceAddr(tt.addr, tt.subnet)
			if (err != nil) != tt.wantErr {
				t.Fatalf("InterfaceAddr(%q, %q) error = %v, wantErr %v", tt.addr, tt.subnet, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("InterfaceAddr(%q, %q) = %q, want %q", tt.addr, tt.subnet, got, tt.want)
			}
		})
	}
}
