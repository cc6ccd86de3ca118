package security

import (
	"fmt"
	"time"

	"github.com/filevault/filevault/analysis"
	"github.com/pkg/errors"
)

const (
	defaultMaxLoginAttempts = 5
	defaultLoginWindow      = time.Hour
	riskThreshold           = 0.7
	threatLookback          = 24 * time.Hour
)

// Assessment is the verdict on a file produced from its analysis report.
type Assessment struct {
	Safe            bool     `json:"safe"`
	RiskScore       float64  `json:"risk_score"`
	Threats         []string `json:"threats_detected"`
	Recommendations []string `json:"recommendations"`
}

// Threat is an active security alert for a user.
type Threat struct {
	Type            string    `json:"type"`
	Severity        string    `json:"severity"`
	Description     string    `json:"description"`
	Timestamp       time.Time `json:"timestamp"`
	Recommendations []string  `json:"recommendations"`
}

// Monitor scores files against analysis results and tracks user activity for
// suspicious behaviour.
type Monitor struct {
	audit            AuditRepo
	maxLoginAttempts int
	loginWindow      time.Duration
	nowFunc          func() time.Time
}

type MonitorOption func(*Monitor)

func WithLoginLimits(maxAttempts int, window time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.maxLoginAttempts = maxAttempts
		m.loginWindow = window
	}
}

func WithNowFunc(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		m.nowFunc = now
	}
}

func NewMonitor(audit AuditRepo, options ...MonitorOption) (*Monitor, error) {
	if audit == nil {
		return nil, errors.New("[NewMonitor] audit repo is required")
	}

	m := &Monitor{
		audit:            audit,
		maxLoginAttempts: defaultMaxLoginAttempts,
		loginWindow:      defaultLoginWindow,
		nowFunc:          time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// CheckFile scores a file against its analysis report and decides whether it
// may be stored.
func (m *Monitor) CheckFile(report *analysis.Report) Assessment {
	result := Assessment{
		Safe:            true,
		Threats:         []string{},
		Recommendations: []string{},
	}

	if report != nil {
		switch report.Security.ThreatLevel {
		case analysis.ThreatHigh, analysis.ThreatCritical:
			result.Safe = false
			result.RiskScore = 0.9
			result.Threats = append(result.Threats,
				fmt.Sprintf("High threat level detected: %s", report.Security.ThreatLevel))
		}

		if n := len(report.Content.SensitiveData); n > 0 {
			result.RiskScore += 0.3
			result.Threats = append(result.Threats, fmt.Sprintf("Sensitive data detected: %d items", n))
			result.Recommendations = append(result.Recommendations, "Consider encrypting this file")
		}

		if len(report.Security.MalwareIndicators) > 0 {
			result.Safe = false
			result.RiskScore = 1.0
			result.Threats = append(result.Threats, "Malware indicators detected")
		}

		if len(report.Security.ComplianceIssues) > 0 {
			result.RiskScore += 0.2
			result.Threats = append(result.Threats,
				fmt.Sprintf("Compliance issues: %v", report.Security.ComplianceIssues))
		}

		if len(report.Security.SuspiciousPatterns) > 0 {
			result.RiskScore += 0.4
			result.Threats = append(result.Threats, "Suspicious file characteristics detected")
		}
	}

	if result.RiskScore >= riskThreshold {
		result.Safe = false
	}

	if !result.Safe {
		result.Recommendations = append(result.Recommendations,
			"File flagged for manual review",
			"Restrict access to authorized personnel only",
		)
	}

	return result
}

// Record appends an event to the user's audit trail.
func (m *Monitor) Record(userID, eventType string, details map[string]string) {
	event := &AuditEvent{
		UserID:    userID,
		Type:      eventType,
		Timestamp: m.nowFunc().UTC(),
		Details:   details,
	}
	if details != nil {
		event.IPAddress = details["ip_address"]
		event.UserAgent = details["user_agent"]
	}
	if err := m.audit.Append(event); err != nil {
		// Audit failures must not take down the calling operation.
		return
	}
}

// LoginAllowed reports whether the user is below the failed-login threshold.
func (m *Monitor) LoginAllowed(userID string) (bool, error) {
	since := m.nowFunc().Add(-m.loginWindow)
	failures, err := m.audit.CountByUserAndType(userID, EventLoginFailure, since)
	if err != nil {
		return false, errors.Wrap(err, "[Monitor.LoginAllowed] count failures")
	}
	return failures < m.maxLoginAttempts, nil
}

// Threats builds the list of active security alerts for a user.
func (m *Monitor) Threats(userID string) ([]Threat, error) {
	threats := make([]Threat, 0)
	now := m.nowFunc().UTC()

	failedLogins, err := m.audit.CountByUserAndType(userID, EventLoginFailure, now.Add(-m.loginWindow))
	if err != nil {
		return nil, errors.Wrap(err, "[Monitor.Threats] count failed logins")
	}
	if failedLogins >= m.maxLoginAttempts {
		threats = append(threats, Threat{
			Type:        "brute_force_attempt",
			Severity:    "high",
			Description: fmt.Sprintf("%d failed login attempts in the last hour", failedLogins),
			Timestamp:   now,
			Recommendations: []string{
				"Account temporarily locked",
				"Contact administrator if this was not you",
			},
		})
	}

	flagged, err := m.audit.CountByUserAndType(userID, EventFileFlagged, now.Add(-threatLookback))
	if err != nil {
		return nil, errors.Wrap(err, "[Monitor.Threats] count flagged files")
	}
	if flagged > 0 {
		threats = append(threats, Threat{
			Type:        "flagged_uploads",
			Severity:    "medium",
			Description: fmt.Sprintf("%d uploads were flagged by content analysis in the last 24 hours", flagged),
			Timestamp:   now,
			Recommendations: []string{
				"Review recent upload activity",
			},
		})
	}

	denied, err := m.audit.CountByUserAndType(userID, EventAccessDenied, now.Add(-threatLookback))
	if err != nil {
		return nil, errors.Wrap(err, "[Monitor.Threats] count denied access")
	}
	if denied > 0 {
		threats = append(threats, Threat{
			Type:        "suspicious_activity",
			Severity:    "medium",
			Description: fmt.Sprintf("%d denied access attempts in the last 24 hours", denied),
			Timestamp:   now,
			Recommendations: []string{
				"Review recent account activity",
				"Change password if necessary",
			},
		})
	}

	return threats, nil
}

// AuditLog returns the most recent audit entries for a user, newest first.
func (m *Monitor) AuditLog(userID string, limit int) ([]*AuditEvent, error) {
	events, err := m.audit.ListByUser(userID, time.Time{}, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[Monitor.AuditLog] list")
	}
	return events, nil
}
