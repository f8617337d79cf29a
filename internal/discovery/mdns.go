// ABOUTME: mDNS discovery for the mixer remote-control service
// ABOUTME: Advertises a running mixer and browses for mixers on the local network
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the DNS-SD type of the remote-control endpoint
	ServiceType = "_resonate-mixer._tcp"

	browseTimeout = 3 * time.Second
)

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	// Path is the WebSocket path advertised in the TXT record
	Path    string
	Version string
	Logger  *log.Logger
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc
	mixers chan *MixerInfo
	server *mdns.Server
}

// MixerInfo describes a discovered mixer
type MixerInfo struct {
	Name    string
	Host    string
	Port    int
	Path    string
	Version string
}

// URL returns the WebSocket address of the mixer
func (m *MixerInfo) URL() string {
	return "ws://" + net.JoinHostPort(m.Host, strconv.Itoa(m.Port)) + m.Path
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = "/control"
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		logger: config.Logger.WithPrefix("mdns"),
		ctx:    ctx,
		cancel: cancel,
		mixers: make(chan *MixerInfo, 10),
	}
}

// txtRecords describes the endpoint to browsers
func (m *Manager) txtRecords() []string {
	txt := []string{"path=" + m.config.Path}
	if m.config.Version != "" {
		txt = append(txt, "version="+m.config.Version)
	}
	return txt
}

// Advertise publishes the remote-control service until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	m.server = server

	m.logger.Info("Advertising mDNS service", "name", m.config.ServiceName, "port", m.config.Port, "type", ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for mixers until Stop
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				mixer := mixerFromEntry(entry)
				if mixer == nil {
					continue
				}

				m.logger.Debug("Discovered mixer", "name", mixer.Name, "url", mixer.URL())

				select {
				case m.mixers <- mixer:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service:             ServiceType,
			Domain:              "local",
			Timeout:             browseTimeout,
			Entries:             entries,
			DisableIPv6:         true,
			WantUnicastResponse: false,
		}

		if err := mdns.Query(params); err != nil {
			m.logger.Warn("mDNS query failed", "err", err)
		}
		close(entries)
	}
}

// mixerFromEntry returns nil for entries without an IPv4 address
func mixerFromEntry(entry *mdns.ServiceEntry) *MixerInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}
	info := &MixerInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: "/control",
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "path":
			info.Path = value
		case "version":
			info.Version = value
		}
	}
	return info
}

// Mixers returns the channel of discovered mixers
func (m *Manager) Mixers() <-chan *MixerInfo {
	return m.mixers
}

// Stop ends advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
