package pipeline

import "strings"

type DetectResult struct {
	IsPayroll bool
	Score     float64
	Reason    string
}

var detectKeywords = []string{"payroll", "payslip", "pay slip", "salary", "wages", "crew pay", "remittance", "allotment"}

// DetectPayrollMail scores a mail by keywords and by carrying a workbook or
// an HTML table.
func DetectPayrollMail(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		if isWorkbookName(name) {
			score += 0.35
			break
		}
	}

	if strings.Contains(html, "<table") && strings.Contains(html, headerMarker) {
		score += 0.35
	}
	if score > 1 {
		score = 1
	}

	isPayroll := score >= 0.45
	reason := "rules_negative"
	if isPayroll {
		reason = "rules_positive"
	}

	return DetectResult{IsPayroll: isPayroll, Score: score, Reason: reason}
}

func isWorkbookName(name string) bool {
	ln := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xls")
}
