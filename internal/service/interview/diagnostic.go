package interview

import "strings"

// Diagnostic explains why a reply came from the script instead of the model.
type Diagnostic string

const (
	DiagnosticNone       Diagnostic = ""
	DiagnosticScriptMode Diagnostic = "script_mode"
	DiagnosticQuota      Diagnostic = "quota"
	DiagnosticAuth       Diagnostic = "auth"
	DiagnosticRegion     Diagnostic = "region"
	DiagnosticConnection Diagnostic = "connection"
)

// Label is the short text shown to the user.
func (d Diagnostic) Label() string {
	switch d {
	case DiagnosticScriptMode:
		return "Script Mode"
	case DiagnosticQuota:
		return "Quota Limit (Using Script)"
	case DiagnosticAuth:
		return "Key Invalid"
	case DiagnosticRegion:
		return "Region Not Supported"
	case DiagnosticConnection:
		return "Connection Error"
	default:
		return ""
	}
}

// Classify maps a remote error onto the diagnostic taxonomy.
func Classify(err error) Diagnostic {
	if err == nil {
		return DiagnosticNone
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return DiagnosticQuota
	case strings.Contains(msg, "403") || strings.Contains(msg, "key"):
		return DiagnosticAuth
	case strings.Contains(msg, "location") || strings.Contains(msg, "region"):
		return DiagnosticRegion
	default:
		return DiagnosticConnection
	}
}
