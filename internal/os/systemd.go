package os

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// SystemdConfig holds configuration for generating a validator service unit file.
type SystemdConfig struct {
	Service     string
	User        string
	Port        int
	BinaryPath  string
	EnvFile     string
	Description string
	After       string
	Restart     string
	RestartSec  int
	ExtraArgs   string
}

// DefaultSystemdConfig returns a default systemd configuration for a service.
func DefaultSystemdConfig(service, user, binaryPath string, port int) *SystemdConfig {
	return &SystemdConfig{
		Service:     service,
		User:        user,
		Port:        port,
		BinaryPath:  binaryPath,
		Description: fmt.Sprintf("Name & Address Validator (%s)", service),
		After:       "network-online.target",
		Restart:     "on-failure",
		RestartSec:  10,
	}
}

// systemdTemplate is the template for generating systemd unit files.
const systemdTemplate = `[Unit]
Description={{ .Description }}
After={{ .After }}
Wants=network-online.target

[Service]
User={{ .User }}
Group={{ .User }}
Type=simple
{{- if .EnvFile }}
EnvironmentFile={{ .EnvFile }}
{{- end }}
ExecStart={{ .BinaryPath }} --port {{ .Port }}{{ if .ExtraArgs }} {{ .ExtraArgs }}{{ end }}
Restart={{ .Restart }}
RestartSec={{ .RestartSec }}
LimitNOFILE=65535

# Security hardening
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ProtectHome=read-only

[Install]
WantedBy=multi-user.target
`

// GenerateSystemdUnit generates a systemd unit file.
func GenerateSystemdUnit(cfg *SystemdConfig) (string, error) {
	tmpl, err := template.New("systemd").Parse(systemdTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse systemd template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to execute systemd template: %w", err)
	}

	return buf.String(), nil
}

// UnitPath returns the path the unit file should be written to.
func UnitPath(service string) string {
	return filepath.Join("/etc/systemd/system", fmt.Sprintf("validator-%s.service", service))
}

// WriteSystemdUnit writes the unit file for a service. In dry-run mode the
// content is returned without touching the filesystem.
func WriteSystemdUnit(cfg *SystemdConfig, dryRun bool) (string, string, error) {
	unitPath := UnitPath(cfg.Service)

	content, err := GenerateSystemdUnit(cfg)
	if err != nil {
		return unitPath, "", err
	}

	if dryRun {
		return unitPath, content, nil
	}

	if err := os.WriteFile(unitPath, []byte(content), 0644); err != nil {
		return unitPath, content, fmt.Errorf("failed to write unit file (may need sudo): %w", err)
	}

	return unitPath, content, nil
}

// SystemdInstructions returns post-install instructions for a unit file.
func SystemdInstructions(unitPath string) string {
	unit := filepath.Base(unitPath)
	return fmt.Sprintf(`Unit file written to: %s

To enable and start the service:
  sudo systemctl daemon-reload
  sudo systemctl enable %s
  sudo systemctl start %s

To check status:
  systemctl status %s
`, unitPath, unit, unit, unit)
}
