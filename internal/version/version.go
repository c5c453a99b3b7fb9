// ABOUTME: Build identity constants
// ABOUTME: Reported in logs and telemetry
package version

const (
	Version      = "0.1.0"
	Product      = "GlowSync Node"
	Manufacturer = "GlowSync"
)
