package analysis

import (
	"time"
)

// ThreatLevel grades the severity of what the analyzer found in a file.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// Classification is the broad content category assigned to a file.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ContentAnalysis holds what the analyzer understood about the file's content.
type ContentAnalysis struct {
	SensitiveData  []string       `json:"sensitive_data_detected"`
	Classification Classification `json:"content_classification"`
	Entities       []string       `json:"entities_identified"`
}

// SecurityAnalysis holds the security-relevant findings for a file.
type SecurityAnalysis struct {
	ThreatLevel        ThreatLevel `json:"threat_level"`
	MalwareIndicators  []string    `json:"malware_indicators"`
	SuspiciousPatterns []string    `json:"suspicious_patterns"`
	DataClassification string      `json:"data_classification"` // "public", "internal" or "confidential"
	ComplianceIssues   []string    `json:"compliance_issues"`
}

// Report is the full result of analyzing one file.
type Report struct {
	FileType        string           `json:"file_type"`
	Content         ContentAnalysis  `json:"content_analysis"`
	Security        SecurityAnalysis `json:"security_analysis"`
	Timestamp       time.Time        `json:"analysis_timestamp"`
	ConfidenceScore float64          `json:"confidence_score"`
	Recommendations []string         `json:"recommendations"`
}

// Insights summarizes the state of a user's stored files.
type Insights struct {
	FileStatistics  FileStatistics `json:"file_statistics"`
	SecuritySummary Summary        `json:"security_summary"`
	Recommendations []string       `json:"recommendations"`
}

type FileStatistics struct {
	TotalFiles int            `json:"total_files"`
	TotalBytes int64          `json:"total_size"`
	FileTypes  map[string]int `json:"file_types"`
}

type Summary struct {
	SafeFiles    int    `json:"safe_files"`
	FlaggedFiles int    `json:"flagged_files"`
	RiskLevel    string `json:"risk_level"`
}
