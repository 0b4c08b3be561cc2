package sentinel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// AlertCallback is invoked whenever a new or replaced Alert is raised.
type AlertCallback func(Alert)

// AlertManager tracks per-check consecutive-failure counts, raises/clears
// Alerts, and bridges to the knowledge interface for incidents and
// remediation suggestions.
type AlertManager struct {
	mu            sync.Mutex
	failureCounts map[string]int
	alerts        map[string]*Alert

	autoRemediate bool
	callback      AlertCallback
	knowledge     Knowledge
	remediator    Remediator

	AlertsCreated         int
	IncidentsCreated      int
	RemediationsTriggered int
}

// NewAlertManager builds an AlertManager. knowledge and remediator may be
// nil, disabling incident creation and auto-remediation respectively.
func NewAlertManager(autoRemediate bool, callback AlertCallback, knowledge Knowledge, remediator Remediator) *AlertManager {
	if callback == nil {
		callback = defaultAlertCallback
	}
	return &AlertManager{
		failureCounts: make(map[string]int),
		alerts:        make(map[string]*Alert),
		autoRemediate: autoRemediate,
		callback:      callback,
		knowledge:     knowledge,
		remediator:    remediator,
	}
}

func defaultAlertCallback(a Alert) {
	slog.Warn("sentinel alert", "severity", a.Severity, "target", a.Target, "message", a.Message)
}

// ProcessResult feeds one CheckResult through the failure-counter and
// alert-raising pipeline.
func (m *AlertManager) ProcessResult(ctx context.Context, result CheckResult) {
	name := result.Check.Name

	m.mu.Lock()
	if result.Success {
		if m.failureCounts[name] > 0 {
			slog.Info("check recovered", "check", name, "prior_failures", m.failureCounts[name])
		}
		m.failureCounts[name] = 0
		delete(m.alerts, name)
		m.mu.Unlock()
		return
	}

	m.failureCounts[name]++
	failures := m.failureCounts[name]
	threshold := result.Check.ThresholdFailures
	if threshold <= 0 {
		threshold = 1
	}
	if failures < threshold {
		m.mu.Unlock()
		return
	}

	alert := m.buildAlert(result, failures, threshold)
	m.alerts[name] = &alert
	m.AlertsCreated++
	m.mu.Unlock()

	m.callback(alert)

	if alert.Severity == SeverityCritical {
		m.createIncident(ctx, alert, result)
	}
	if m.autoRemediate && (alert.Severity == SeverityWarning || alert.Severity == SeverityCritical) {
		m.triggerRemediation(ctx, alert, result)
	}
}

func (m *AlertManager) buildAlert(result CheckResult, failures, threshold int) Alert {
	severity := SeverityInfo
	switch {
	case failures >= threshold*3:
		severity = SeverityCritical
	case failures >= threshold*2:
		severity = SeverityWarning
	}

	message := result.Error
	if message == "" {
		message = fmt.Sprintf("check failed %d times", failures)
	}

	return Alert{
		ID:                  fmt.Sprintf("alert_%s_%d", result.Check.Name, result.Timestamp.Unix()),
		CheckName:           result.Check.Name,
		Target:              result.Check.Target,
		Severity:            severity,
		Message:             message,
		Timestamp:           result.Timestamp,
		ConsecutiveFailures: failures,
	}
}

func (m *AlertManager) createIncident(ctx context.Context, alert Alert, result CheckResult) {
	if m.knowledge == nil {
		return
	}

	symptoms := []string{fmt.Sprintf("%s check failed", result.Check.CheckType)}
	if result.Error != "" {
		symptoms = append(symptoms, result.Error)
	} else {
		symptoms = append(symptoms, "unknown error")
	}
	for k, v := range result.Details {
		symptoms = append(symptoms, fmt.Sprintf("%s: %v", k, v))
	}

	priority := severityPriority[alert.Severity]
	if priority == "" {
		priority = "P2"
	}

	service, _ := result.Check.Parameters["service"].(string)
	if service == "" {
		service = result.Check.Target
	}

	id, err := m.knowledge.RecordIncident(ctx, Incident{
		Title:       fmt.Sprintf("[Sentinel] %s: %s", alert.CheckName, alert.Message),
		Priority:    priority,
		Description: fmt.Sprintf("Automatically detected by Sentinel after %d consecutive failures", alert.ConsecutiveFailures),
		Service:     service,
		Host:        result.Check.Target,
		Symptoms:    symptoms,
		Tags:        []string{"sentinel", "auto-detected", string(result.Check.CheckType)},
	})
	if err != nil {
		slog.Error("failed to create incident", "check", alert.CheckName, "error", err)
		return
	}

	m.mu.Lock()
	if a, ok := m.alerts[alert.CheckName]; ok {
		a.IncidentID = id
	}
	m.IncidentsCreated++
	m.mu.Unlock()
}

func (m *AlertManager) triggerRemediation(ctx context.Context, alert Alert, result CheckResult) {
	if m.knowledge == nil {
		return
	}

	errText := result.Error
	if errText == "" {
		errText = "check failed"
	}

	remediation, err := m.knowledge.SuggestRemediation(ctx, []string{errText}, result.Check.Target, alert.Message)
	if err != nil {
		slog.Error("remediation lookup failed", "check", alert.CheckName, "error", err)
		return
	}
	if remediation == nil {
		slog.Info("no remediation found", "check", alert.CheckName)
		return
	}
	if !remediation.AutoExecutable {
		slog.Info("remediation requires manual approval", "check", alert.CheckName)
		return
	}

	if m.remediator == nil {
		slog.Info("auto-executable remediation found but no remediator configured", "check", alert.CheckName)
		return
	}

	if err := m.remediator.Execute(ctx, result.Check.Target, *remediation); err != nil {
		slog.Error("remediation execution failed", "check", alert.CheckName, "error", err)
		return
	}

	m.mu.Lock()
	m.RemediationsTriggered++
	m.mu.Unlock()
}

// Alerts returns currently active alerts, including acknowledged ones when
// includeAcknowledged is true.
func (m *AlertManager) Alerts(includeAcknowledged bool) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if !includeAcknowledged && a.Acknowledged {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// Acknowledge marks the named check's active alert acknowledged.
func (m *AlertManager) Acknowledge(checkName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[checkName]
	if !ok {
		return false
	}
	a.Acknowledged = true
	return true
}
