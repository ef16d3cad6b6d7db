package iris

import (
	"fmt"
	"strings"

	"morakib/core"
)

// ExportPayload is the case plus its derived IOCs for one alert.
type ExportPayload struct {
	CaseData CaseCreate
	IOCs     []IOCCreate
}

// AlertToCase maps an alert to an IRIS case and its network IOCs. The
// mapping is pure: no lookups, no side effects.
func AlertToCase(alert *core.Alert) ExportPayload {
	caseData := CaseCreate{
		CaseName:         fmt.Sprintf("[Morakib] %s", alert.Title),
		CaseDescription:  caseDescription(alert),
		CaseCustomer:     1,
		CaseSOCID:        CaseSOCID(alert.ID),
		ClassificationID: classificationFor(alert.Severity),
	}

	var iocs []IOCCreate
	if alert.SourceIP != "" {
		iocs = append(iocs, IOCCreate{
			IOCValue:       alert.SourceIP,
			IOCTypeID:      IOCTypeIP,
			IOCDescription: fmt.Sprintf("Source IP from alert: %s", alert.Title),
			IOCTLPID:       TLPAmber,
			IOCTags:        "source,morakib,alert",
		})
	}
	if alert.DestIP != "" {
		iocs = append(iocs, IOCCreate{
			IOCValue:       alert.DestIP,
			IOCTypeID:      IOCTypeIP,
			IOCDescription: fmt.Sprintf("Destination IP from alert: %s", alert.Title),
			IOCTLPID:       TLPAmber,
			IOCTags:        "destination,morakib,alert",
		})
	}
	if alert.DestPort != nil {
		destIP := alert.DestIP
		if destIP == "" {
			destIP = "*"
		}
		protocol := alert.Protocol
		if protocol == "" {
			protocol = "TCP"
		}
		iocs = append(iocs, IOCCreate{
			IOCValue:       fmt.Sprintf("%s:%d/%s", destIP, *alert.DestPort, protocol),
			IOCTypeID:      IOCTypePort,
			IOCDescription: fmt.Sprintf("Network port from alert: %s", alert.Title),
			IOCTLPID:       TLPGreen,
			IOCTags:        "port,network,morakib",
		})
	}

	return ExportPayload{CaseData: caseData, IOCs: iocs}
}

// CaseSOCID derives the external case reference from an alert ID.
func CaseSOCID(alertID string) string {
	short := alertID
	if len(short) > 8 {
		short = short[:8]
	}
	return "MOK-" + strings.ToUpper(short)
}

func classificationFor(severity core.AlertSeverity) int {
	switch severity {
	case core.AlertSeverityCritical:
		return ClassificationIntrusion
	case core.AlertSeverityHigh:
		return ClassificationMalware
	default:
		return ClassificationOther
	}
}

func caseDescription(alert *core.Alert) string {
	orNA := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}
	destPort := "N/A"
	if alert.DestPort != nil {
		destPort = fmt.Sprintf("%d", *alert.DestPort)
	}
	description := alert.Description
	if description == "" {
		description = "No description provided"
	}

	var b strings.Builder
	b.WriteString("Alert exported from Morakib SOC Platform\n\n")
	b.WriteString("**Alert Details:**\n")
	fmt.Fprintf(&b, "- ID: %s\n", alert.ID)
	fmt.Fprintf(&b, "- Source: %s\n", alert.Source)
	fmt.Fprintf(&b, "- Severity: %s\n", alert.Severity)
	fmt.Fprintf(&b, "- Rule: %s\n", orNA(alert.RuleName))
	fmt.Fprintf(&b, "- Source IP: %s\n", orNA(alert.SourceIP))
	fmt.Fprintf(&b, "- Destination IP: %s\n", orNA(alert.DestIP))
	fmt.Fprintf(&b, "- Destination Port: %s\n", destPort)
	fmt.Fprintf(&b, "- Protocol: %s\n", orNA(alert.Protocol))
	b.WriteString("\n**Description:**\n")
	b.WriteString(description)
	return b.String()
}
