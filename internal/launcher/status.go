package launcher

import (
	"fmt"
	"strings"

	"github.com/fieldstone/navctl/internal/ports"
)

// CredentialStatus reports credential availability without revealing values.
type CredentialStatus struct {
	Available bool   `json:"available"`
	Source    string `json:"source"`
}

// PortStatus reports one known port's binding state.
type PortStatus struct {
	Service string `json:"service"`
	Port    int    `json:"port"`
	InUse   bool   `json:"in_use"`
}

// Status is the read-only status report.
type Status struct {
	Credentials CredentialStatus `json:"credentials"`
	Ports       []PortStatus     `json:"ports"`
}

// Status inspects credentials and the known ports without starting anything.
func (l *Launcher) Status() Status {
	st := Status{
		Credentials: CredentialStatus{
			Available: l.Creds.Available,
			Source:    l.Creds.Source.String(),
		},
	}

	for _, entry := range []struct {
		service ServiceName
		port    int
	}{
		{ServiceUI, l.Config.UIPort},
		{ServiceAPI, l.Config.APIPort},
	} {
		st.Ports = append(st.Ports, PortStatus{
			Service: string(entry.service),
			Port:    entry.port,
			InUse:   l.portInUse(entry.port),
		})
	}

	return st
}

func (l *Launcher) portInUse(port int) bool {
	if l.PortInUse != nil {
		return l.PortInUse(port)
	}
	return ports.InUse(port)
}

// Render formats the status for the terminal.
func (s Status) Render() string {
	var b strings.Builder

	b.WriteString("Status\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")

	if s.Credentials.Available {
		fmt.Fprintf(&b, "Credentials:  present (%s)\n", s.Credentials.Source)
	} else {
		b.WriteString("Credentials:  absent (address validation disabled)\n")
	}

	for _, p := range s.Ports {
		state := "free"
		if p.InUse {
			state = "in use"
		}
		fmt.Fprintf(&b, "Port %d (%s): %s\n", p.Port, p.Service, state)
	}

	return b.String()
}
