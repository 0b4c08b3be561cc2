package sentinel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKnowledge struct {
	incidentID   string
	incidentErr  error
	remediation  *Remediation
	remediateErr error
	incidents    []Incident
}

func (k *fakeKnowledge) RecordIncident(_ context.Context, incident Incident) (string, error) {
	k.incidents = append(k.incidents, incident)
	if k.incidentErr != nil {
		return "", k.incidentErr
	}
	return k.incidentID, nil
}

func (k *fakeKnowledge) SuggestRemediation(_ context.Context, _ []string, _, _ string) (*Remediation, error) {
	return k.remediation, k.remediateErr
}

type fakeRemediator struct {
	executed bool
	err      error
}

func (r *fakeRemediator) Execute(_ context.Context, _ string, _ Remediation) error {
	r.executed = true
	return r.err
}

func makeResult(name string, success bool, threshold int) CheckResult {
	return CheckResult{
		Check:     HealthCheck{Name: name, Target: "host1", CheckType: CheckPing, ThresholdFailures: threshold},
		Success:   success,
		Timestamp: time.Now(),
		Error:     "connection refused",
	}
}

func TestAlertManagerRaisesAlertAtThreshold(t *testing.T) {
	var captured []Alert
	m := NewAlertManager(false, func(a Alert) { captured = append(captured, a) }, nil, nil)

	m.ProcessResult(context.Background(), makeResult("svc", false, 2))
	assert.Empty(t, captured)

	m.ProcessResult(context.Background(), makeResult("svc", false, 2))
	require.Len(t, captured, 1)
	assert.Equal(t, SeverityInfo, captured[0].Severity)
}

func TestAlertManagerSeverityEscalates(t *testing.T) {
	var captured []Alert
	m := NewAlertManager(false, func(a Alert) { captured = append(captured, a) }, nil, nil)

	for i := 0; i < 6; i++ {
		m.ProcessResult(context.Background(), makeResult("svc", false, 2))
	}
	require.Len(t, captured, 5) // fires at failures 2,3,4,5,6
	assert.Equal(t, SeverityCritical, captured[len(captured)-1].Severity)
}

func TestAlertManagerSuccessClearsAlert(t *testing.T) {
	m := NewAlertManager(false, nil, nil, nil)
	m.ProcessResult(context.Background(), makeResult("svc", false, 1))
	require.Len(t, m.Alerts(true), 1)

	m.ProcessResult(context.Background(), makeResult("svc", true, 1))
	assert.Empty(t, m.Alerts(true))
}

func TestAlertManagerCreatesIncidentOnCritical(t *testing.T) {
	kn := &fakeKnowledge{incidentID: "inc-1"}
	m := NewAlertManager(false, nil, kn, nil)

	for i := 0; i < 3; i++ {
		m.ProcessResult(context.Background(), makeResult("svc", false, 1))
	}
	require.Len(t, kn.incidents, 1)
	assert.Equal(t, "P1", kn.incidents[0].Priority)
	assert.Equal(t, 1, m.IncidentsCreated)
}

func TestAlertManagerAutoRemediatesWhenExecutable(t *testing.T) {
	kn := &fakeKnowledge{remediation: &Remediation{AutoExecutable: true, Commands: []string{"systemctl restart svc"}}}
	rem := &fakeRemediator{}
	m := NewAlertManager(true, nil, kn, rem)

	// The second consecutive failure at threshold 1 raises a warning alert.
	for i := 0; i < 2; i++ {
		m.ProcessResult(context.Background(), makeResult("svc", false, 1))
	}
	assert.True(t, rem.executed)
	assert.Equal(t, 1, m.RemediationsTriggered)
}

func TestAlertManagerSkipsRemediationWhenNotAutoExecutable(t *testing.T) {
	kn := &fakeKnowledge{remediation: &Remediation{AutoExecutable: false}}
	rem := &fakeRemediator{}
	m := NewAlertManager(true, nil, kn, rem)

	m.ProcessResult(context.Background(), makeResult("svc", false, 1))
	assert.False(t, rem.executed)
}

func TestAlertManagerIncidentErrorDoesNotPanic(t *testing.T) {
	kn := &fakeKnowledge{incidentErr: errors.New("knowledge unavailable")}
	m := NewAlertManager(false, nil, kn, nil)

	assert.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			m.ProcessResult(context.Background(), makeResult("svc", false, 1))
		}
	})
}

func TestAcknowledgeAlert(t *testing.T) {
	m := NewAlertManager(false, nil, nil, nil)
	m.ProcessResult(context.Background(), makeResult("svc", false, 1))

	assert.True(t, m.Acknowledge("svc"))
	assert.False(t, m.Acknowledge("missing"))
	assert.Empty(t, m.Alerts(false))
	assert.Len(t, m.Alerts(true), 1)
}
