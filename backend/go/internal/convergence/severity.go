package convergence

import (
	"fmt"
	"strings"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

// Protocol document names, one per severity.
const (
	CriticalProtocol = "CRITICAL_CONVERGENCE_PROTOCOL.md"
	HighProtocol     = "HIGH_DIVERGENCE_PROTOCOL.md"
	MediumProtocol   = "MEDIUM_DIVERGENCE_PROTOCOL.md"
)

// InterventionKind is the message kind used for intervention notices.
const InterventionKind = "intervention"

// SeverityFor classifies a divergence level.
func SeverityFor(divergence float64) models.Severity {
	switch {
	case divergence > 0.8:
		return models.SeverityCritical
	case divergence > 0.6:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

// ProtocolRef returns the protocol document an intervention of sev points to.
func ProtocolRef(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return CriticalProtocol
	case models.SeverityHigh:
		return HighProtocol
	default:
		return MediumProtocol
	}
}

// ResponseWindow is how long the agent has to report back. It only appears
// in the notice text and is not enforced.
func ResponseWindow(sev models.Severity) time.Duration {
	switch sev {
	case models.SeverityCritical:
		return time.Hour
	case models.SeverityHigh:
		return 2 * time.Hour
	default:
		return 4 * time.Hour
	}
}

// AlertSubject is the subject line of external alerts.
func AlertSubject(agentName string) string {
	return "Convergence Alert: " + agentName
}

type noticeText struct {
	banner  string
	urgency string
	summary string
	contact string
}

var notices = map[models.Severity]noticeText{
	models.SeverityCritical: {
		banner:  "CRITICAL CONVERGENCE ALERT",
		urgency: "IMMEDIATE",
		summary: "This agent requires immediate attention to restore alignment with the project goals.",
		contact: "Contact the coordinator operator for immediate assistance.",
	},
	models.SeverityHigh: {
		banner:  "HIGH DIVERGENCE ALERT",
		urgency: "URGENT",
		summary: "This agent shows significant divergence and requires attention to maintain project alignment.",
		contact: "Contact the coordinator operator for assistance.",
	},
	models.SeverityMedium: {
		banner:  "MEDIUM DIVERGENCE ALERT",
		urgency: "STANDARD",
		summary: "This agent shows moderate divergence and would benefit from an alignment review.",
		contact: "Contact the coordinator operator if assistance is needed.",
	},
}

// InterventionMessage renders the notice sent to an agent.
func InterventionMessage(agentName string, sev models.Severity) string {
	n, ok := notices[sev]
	if !ok {
		sev = models.SeverityMedium
		n = notices[sev]
	}
	return fmt.Sprintf(`%s

Agent: %s
Divergence Level: %s
Intervention Required: %s

Please review the convergence protocol file: %s

%s

Required Actions:
1. Review the convergence protocol
2. Assess current understanding and alignment
3. Implement recommended corrections
4. Report status within %s

%s
`, n.banner, agentName, strings.ToUpper(string(sev)), n.urgency, ProtocolRef(sev), n.summary, formatWindow(ResponseWindow(sev)), n.contact)
}

func formatWindow(d time.Duration) string {
	h := int(d.Hours())
	if h == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", h)
}
