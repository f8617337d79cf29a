// ABOUTME: Product and version identification
// ABOUTME: Reported by the CLI, the remote-control hello message and mDNS records
package version

const (
	Version      = "0.3.0"
	Product      = "Resonate Mixer"
	Manufacturer = "Resonate"
)

// String returns the product and version for banners and user agents
func String() string {
	return Product + " " + Version
}
