package agentclient

import (
	"fmt"
	"strings"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

// Preset is a named agent profile: identity, scores and keyword behaviour.
type Preset struct {
	AgentID       string
	AgentName     string
	Capabilities  []string
	Understanding float64
	Alignment     float64
	Rules         []KeywordRule
}

var presets = map[string]Preset{
	"CURSOR": {
		AgentID:       "CURSOR_001",
		AgentName:     "CURSOR",
		Capabilities:  []string{"dream_analysis", "file_management", "task_coordination"},
		Understanding: 9,
		Alignment:     9,
		Rules: []KeywordRule{
			{Keywords: []string{"dream_analysis"}, Working: "Analyzing dream data", Done: "Dream analysis complete"},
		},
	},
	"ARA": {
		AgentID:       "ARA_002",
		AgentName:     "ARA",
		Capabilities:  []string{"python_development", "technical_analysis", "system_implementation"},
		Understanding: 10,
		Alignment:     9,
		Rules: []KeywordRule{
			{Keywords: []string{"python", "development"}, Working: "Python development task", Done: "Python development complete"},
		},
	},
}

// LookupPreset returns the preset for kind. Unknown kinds get a generic
// profile named <KIND>_001 with the "general" capability.
func LookupPreset(kind string) (Preset, error) {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	if kind == "" {
		return Preset{}, fmt.Errorf("%w: agent kind is required", models.ErrInvalidArgument)
	}
	if p, ok := presets[kind]; ok {
		return p, nil
	}
	return Preset{
		AgentID:      kind + "_001",
		AgentName:    kind,
		Capabilities: []string{"general"},
	}, nil
}

// Config builds a client config for the preset. Zero scores are left unset.
func (p Preset) Config(url string) Config {
	cfg := Config{
		URL:          url,
		AgentID:      p.AgentID,
		AgentName:    p.AgentName,
		Capabilities: append([]string(nil), p.Capabilities...),
	}
	if p.Understanding > 0 {
		cfg.Understanding = models.Float(p.Understanding)
	}
	if p.Alignment > 0 {
		cfg.Alignment = models.Float(p.Alignment)
	}
	return cfg
}

// Handler returns the preset's keyword behaviour.
func (p Preset) Handler() KeywordHandler {
	return KeywordHandler{Rules: p.Rules}
}
