package sentinel

import "context"

// Incident is what Knowledge.RecordIncident writes on a critical alert.
type Incident struct {
	Title       string
	Priority    string
	Description string
	Service     string
	Host        string
	Symptoms    []string
	Tags        []string
}

// Remediation is a suggested fix for an alert's symptoms.
type Remediation struct {
	Description    string
	Commands       []string
	AutoExecutable bool
}

// Knowledge is the external incident/remediation collaborator. A nil
// Knowledge disables incident creation and auto-remediation entirely.
type Knowledge interface {
	RecordIncident(ctx context.Context, incident Incident) (incidentID string, err error)
	SuggestRemediation(ctx context.Context, symptoms []string, service, title string) (*Remediation, error)
}

var severityPriority = map[Severity]string{
	SeverityCritical: "P1",
	SeverityWarning:  "P2",
	SeverityInfo:     "P3",
}

// Remediator executes an approved remediation, typically by dispatching it
// to a skill executor against the alert's target host.
type Remediator interface {
	Execute(ctx context.Context, target string, remediation Remediation) error
}
