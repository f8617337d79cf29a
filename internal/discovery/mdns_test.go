// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests configuration defaults, TXT records and entry parsing
package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManagerDefaults(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Studio", Port: 8928})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	defer mgr.Stop()

	if mgr.config.Path != "/control" {
		t.Errorf("expected default path /control, got %s", mgr.config.Path)
	}
}

func TestTXTRecords(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Studio", Port: 8928, Path: "/ws", Version: "1.2.3"})
	defer mgr.Stop()

	txt := mgr.txtRecords()
	expected := []string{"path=/ws", "version=1.2.3"}
	if len(txt) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, txt)
	}
	for i := range expected {
		if txt[i] != expected[i] {
			t.Errorf("record %d: expected %s, got %s", i, expected[i], txt[i])
		}
	}
}

func TestMixerFromEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *mdns.ServiceEntry
		expected *MixerInfo
	}{
		{
			name:     "nil entry",
			entry:    nil,
			expected: nil,
		},
		{
			name:     "no IPv4 address",
			entry:    &mdns.ServiceEntry{Name: "Studio", Port: 8928},
			expected: nil,
		},
		{
			name: "full entry",
			entry: &mdns.ServiceEntry{
				Name:       "Studio._resonate-mixer._tcp.local.",
				AddrV4:     net.IPv4(192, 168, 1, 20),
				Port:       8928,
				InfoFields: []string{"path=/ws", "version=0.3.0", "junk"},
			},
			expected: &MixerInfo{Name: "Studio", Host: "192.168.1.20", Port: 8928, Path: "/ws", Version: "0.3.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mixerFromEntry(tt.entry)
			if tt.expected == nil {
				if got != nil {
					t.Errorf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestMixerURL(t *testing.T) {
	m := &MixerInfo{Host: "10.0.0.5", Port: 8928, Path: "/control"}
	if got := m.URL(); got != "ws://10.0.0.5:8928/control" {
		t.Errorf("expected ws://10.0.0.5:8928/control, got %s", got)
	}
}
