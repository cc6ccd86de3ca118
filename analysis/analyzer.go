package analysis

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Analyzer inspects file content before it is accepted for storage.
type Analyzer interface {
	AnalyzeContent(filename, contentType string, r io.Reader) (*Report, error)
}

// maxScanBytes bounds how much of a file the content scanner reads.
const maxScanBytes = 1 << 20 // 1MiB

var (
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	cardPattern       = regexp.MustCompile(`\b(?:\d[ -]?){15,16}\b`)
	ssnPattern        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	credentialPattern = regexp.MustCompile(`(?i)\b(password|passwd|secret[_-]?key|api[_-]?key|private[_-]?key)\s*[:=]`)
)

// malwareMarkers are byte signatures that flag a file outright.
var malwareMarkers = map[string]string{
	"X5O!P%@AP[4\\PZX54(P^)7CC)7}$EICAR": "eicar test signature",
	"MZ\x90\x00":                        "windows executable header",
	"\x7fELF":                           "elf executable header",
}

// ContentAnalyzer is a deterministic analyzer that classifies files by content
// type and scans textual content for sensitive data and malware markers.
type ContentAnalyzer struct {
	nowFunc func() time.Time
}

type AnalyzerOption func(*ContentAnalyzer)

func WithNowFunc(now func() time.Time) AnalyzerOption {
	return func(a *ContentAnalyzer) {
		a.nowFunc = now
	}
}

func NewContentAnalyzer(options ...AnalyzerOption) *ContentAnalyzer {
	a := &ContentAnalyzer{nowFunc: time.Now}
	for _, opt := range options {
		opt(a)
	}
	return a
}

var _ Analyzer = (*ContentAnalyzer)(nil)

func (a *ContentAnalyzer) AnalyzeContent(filename, contentType string, r io.Reader) (*Report, error) {
	head, err := io.ReadAll(io.LimitReader(bufio.NewReader(r), maxScanBytes))
	if err != nil {
		return nil, errors.Wrap(err, "[ContentAnalyzer.AnalyzeContent] read content")
	}

	fileType := DetectFileType(contentType)

	report := &Report{
		FileType: fileType,
		Content: ContentAnalysis{
			SensitiveData:  []string{},
			Classification: Classification{Category: "general", Confidence: 0.9},
			Entities:       []string{},
		},
		Security: SecurityAnalysis{
			ThreatLevel:        ThreatLow,
			MalwareIndicators:  []string{},
			SuspiciousPatterns: []string{},
			DataClassification: "public",
			ComplianceIssues:   []string{},
		},
		Timestamp:       a.nowFunc().UTC(),
		ConfidenceScore: 0.9,
	}

	for marker, name := range malwareMarkers {
		if bytes.Contains(head, []byte(marker)) {
			report.Security.MalwareIndicators = append(report.Security.MalwareIndicators, name)
		}
	}
	if len(report.Security.MalwareIndicators) > 0 {
		report.Security.ThreatLevel = ThreatCritical
		report.Recommendations = []string{"Do not open this file", "File flagged for manual review"}
		return report, nil
	}

	if fileType == "text" || fileType == "document" {
		a.scanText(string(head), report)
	}

	if ext := suspiciousExtension(filename); ext != "" {
		report.Security.SuspiciousPatterns = append(report.Security.SuspiciousPatterns, ext)
		report.Security.ThreatLevel = maxThreat(report.Security.ThreatLevel, ThreatMedium)
	}

	if len(report.Content.SensitiveData) > 0 {
		report.Security.DataClassification = "confidential"
		report.Recommendations = append(report.Recommendations, "Consider enabling encryption for sensitive files")
	} else {
		report.Recommendations = append(report.Recommendations, "File appears safe for storage")
	}

	return report, nil
}

func (a *ContentAnalyzer) scanText(content string, report *Report) {
	if emails := emailPattern.FindAllString(content, 10); len(emails) > 0 {
		report.Content.SensitiveData = append(report.Content.SensitiveData, "email_addresses")
		report.Content.Entities = append(report.Content.Entities, dedupe(emails)...)
	}
	if cardPattern.MatchString(content) {
		report.Content.SensitiveData = append(report.Content.SensitiveData, "payment_card_numbers")
		report.Security.ComplianceIssues = append(report.Security.ComplianceIssues, "pci")
		report.Security.ThreatLevel = maxThreat(report.Security.ThreatLevel, ThreatMedium)
	}
	if ssnPattern.MatchString(content) {
		report.Content.SensitiveData = append(report.Content.SensitiveData, "national_id_numbers")
		report.Security.ComplianceIssues = append(report.Security.ComplianceIssues, "pii")
		report.Security.ThreatLevel = maxThreat(report.Security.ThreatLevel, ThreatMedium)
	}
	if credentialPattern.MatchString(content) {
		report.Content.SensitiveData = append(report.Content.SensitiveData, "credentials")
		report.Security.ThreatLevel = maxThreat(report.Security.ThreatLevel, ThreatHigh)
	}
}

// DetectFileType maps a MIME content type to a broad file category.
func DetectFileType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "text/"):
		return "text"
	case strings.HasPrefix(ct, "image/"):
		return "image"
	case strings.HasPrefix(ct, "video/"):
		return "video"
	case strings.HasPrefix(ct, "audio/"):
		return "audio"
	case ct == "application/pdf",
		ct == "application/msword",
		ct == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "document"
	}
	return "unknown"
}

// suspiciousExtension flags double extensions hiding an executable suffix.
func suspiciousExtension(filename string) string {
	lower := strings.ToLower(filename)
	for _, ext := range []string{".exe", ".bat", ".cmd", ".scr", ".js", ".vbs"} {
		if strings.HasSuffix(lower, ext) && strings.Count(lower, ".") > 1 {
			return "double extension hiding " + ext
		}
	}
	return ""
}

var threatOrder = map[ThreatLevel]int{
	ThreatLow:      0,
	ThreatMedium:   1,
	ThreatHigh:     2,
	ThreatCritical: 3,
}

func maxThreat(a, b ThreatLevel) ThreatLevel {
	if threatOrder[b] > threatOrder[a] {
		return b
	}
	return a
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
