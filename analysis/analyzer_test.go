package analysis_test

import (
	"strings"
	"testing"

	"github.com/filevault/filevault/analysis"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCleanTextFile(t *testing.T) {
	analyzer := analysis.NewContentAnalyzer()

	report, err := analyzer.AnalyzeContent("notes.txt", "text/plain", strings.NewReader("meeting at noon"))
	require.NoError(t, err)
	require.Equal(t, "text", report.FileType)
	require.Equal(t, analysis.ThreatLow, report.Security.ThreatLevel)
	require.Empty(t, report.Content.SensitiveData)
	require.Equal(t, "public", report.Security.DataClassification)
	require.Contains(t, report.Recommendations, "File appears safe for storage")
}

func TestAnalyzeDetectsEmailAddresses(t *testing.T) {
	analyzer := analysis.NewContentAnalyzer()

	report, err := analyzer.AnalyzeContent("contacts.txt", "text/plain",
		strings.NewReader("reach me at john.doe@example.com"))
	require.NoError(t, err)
	require.Contains(t, report.Content.SensitiveData, "email_addresses")
	require.Equal(t, "confidential", report.Security.DataClassification)
}

func TestAnalyzeDetectsCardNumbers(t *testing.T) {
	analyzer := analysis.NewContentAnalyzer()

	report, err := analyzer.AnalyzeContent("payments.txt", "text/plain",
		strings.NewReader("card: 4111 1111 1111 1111"))
	require.NoError(t, err)
	require.Contains(t, report.Content.SensitiveData, "payment_card_numbers")
	require.Contains(t, report.Security.ComplianceIssues, "pci")
}

func TestAnalyzeDetectsCredentials(t *testing.T) {
	analyzer := analysis.NewContentAnalyzer()

	report, err := analyzer.AnalyzeContent("config.txt", "text/plain",
		strings.NewReader("api_key = abc123"))
	require.NoError(t, err)
	require.Contains(t, report.Content.SensitiveData, "credentials")
	require.Equal(t, analysis.ThreatHigh, report.Security.ThreatLevel)
}

func TestAnalyzeDetectsMalwareSignature(t *testing.T) {
	analyzer := analysis.NewContentAnalyzer()

	report, err := analyzer.AnalyzeContent("payload.txt", "text/plain",
		strings.NewReader("X5O!P%@AP[4\\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*"))
	require.NoError(t, err)
	require.Equal(t, analysis.ThreatCritical, report.Security.ThreatLevel)
	require.NotEmpty(t, report.Security.MalwareIndicators)
}

func TestAnalyzeDoubleExtension(t *testing.T) {
	analyzer := analysis.NewContentAnalyzer()

	report, err := analyzer.AnalyzeContent("invoice.pdf.exe", "application/octet-stream",
		strings.NewReader("plain bytes"))
	require.NoError(t, err)
	require.NotEmpty(t, report.Security.SuspiciousPatterns)
	require.Equal(t, analysis.ThreatMedium, report.Security.ThreatLevel)
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"text/plain", "text"},
		{"image/png", "image"},
		{"video/mp4", "video"},
		{"audio/mpeg", "audio"},
		{"application/pdf", "document"},
		{"application/octet-stream", "unknown"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, analysis.DetectFileType(tc.contentType), tc.contentType)
	}
}
