package state

import (
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

type RouterMode string

const (
	ModeInterior   RouterMode = "interior"
	ModeStandalone RouterMode = "standalone"
)

// AddressCfg assigns a distribution to every mobile address under Prefix
type AddressCfg struct {
	Prefix       string    `yaml:"prefix"`
	Distribution Treatment `yaml:"distribution"`
}

// RouterCfg represents local router configuration
type RouterCfg struct {
	Id                 string        `yaml:"id"`                             // unique id for this router
	Area               string        `yaml:"area,omitempty"`                 // routing area, "0" if empty
	Mode               RouterMode    `yaml:"mode,omitempty"`                 // interior routers keep a route table, standalone routers do not
	LogPath            string        `yaml:"log_path,omitempty"`             // if not empty, the router will also write to this file
	InspectSocket      string        `yaml:"inspect_socket,omitempty"`       // unix socket serving the inspect command
	DiagnosticHoldDown time.Duration `yaml:"diagnostic_hold_down,omitempty"` // repeated critical diagnostics within this window are demoted to debug
	DebugAssertions    bool          `yaml:"debug_assertions,omitempty"`     // panic on internal consistency faults
	Addresses          []AddressCfg  `yaml:"addresses,omitempty"`
}

// ExpandRouterConfig fills in defaults
func ExpandRouterConfig(cfg *RouterCfg) {
	if cfg.Area == "" {
		cfg.Area = DefaultArea
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeInterior
	}
	if cfg.DiagnosticHoldDown == 0 {
		cfg.DiagnosticHoldDown = DiagnosticHoldDown
	}
	if cfg.InspectSocket == "" {
		cfg.InspectSocket = InspectSocketPath
	}
}

// LookupDistribution returns the distribution of the longest configured prefix of body.
func (c *RouterCfg) LookupDistribution(body string) (Treatment, bool) {
	best := -1
	for i, a := range c.Addresses {
		if strings.HasPrefix(body, a.Prefix) && (best == -1 || len(a.Prefix) > len(c.Addresses[best].Prefix)) {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return c.Addresses[best].Distribution, true
}

func ParseRouterConfig(data []byte) (*RouterCfg, error) {
	var cfg RouterCfg
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ReadRouterConfig(path string) (*RouterCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRouterConfig(file)
}
