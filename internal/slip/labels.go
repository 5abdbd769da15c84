package slip

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"payslip/internal"
)

// LabelBinding ties a template label text to a record field.
type LabelBinding struct {
	Label string `yaml:"label"`
	Field string `yaml:"field"`
}

// Labels describes where a template expects each value. Identity and Period
// bind the first two tables, Earnings and Deductions the two amount columns
// of the third.
type Labels struct {
	Identity            []LabelBinding `yaml:"identity"`
	Period              []LabelBinding `yaml:"period"`
	Earnings            []LabelBinding `yaml:"earnings"`
	Deductions          []LabelBinding `yaml:"deductions"`
	AmountHeader        string         `yaml:"amount_header"`
	HeaderScanRows      int            `yaml:"header_scan_rows"`
	RemarksAnchor       string         `yaml:"remarks_anchor"`
	RemarksPlaceholders []string       `yaml:"remarks_placeholders"`
}

func DefaultLabels() Labels {
	return Labels{
		Identity: []LabelBinding{
			{Label: "Name", Field: internal.FieldName},
			{Label: "Rank", Field: internal.FieldRank},
			{Label: "Vessel", Field: internal.FieldVessel},
		},
		Period: []LabelBinding{
			{Label: "From", Field: internal.FieldPeriodFrom},
			{Label: "To", Field: internal.FieldPeriodTo},
			{Label: "Days on Board", Field: internal.FieldDaysOnBoard},
		},
		Earnings: []LabelBinding{
			{Label: "Basic Salary", Field: internal.FieldBasicSalary},
			{Label: "Fixed OT", Field: internal.FieldFixedOT},
			{Label: "Leave Pay", Field: internal.FieldLeavePay},
			{Label: "Allowance", Field: internal.FieldAllowance},
			{Label: "Reimbursement", Field: internal.FieldReimbursement},
			{Label: "Subtotal", Field: internal.FieldSubtotal},
		},
		Deductions: []LabelBinding{
			{Label: "Deduction", Field: internal.FieldDeduction},
			{Label: "Release", Field: internal.FieldRelease},
			{Label: "Retaining", Field: internal.FieldRetaining},
			{Label: "Remittance", Field: internal.FieldRemittance},
			{Label: "Net Salary", Field: internal.FieldNetSalary},
		},
		AmountHeader:        "Amount",
		HeaderScanRows:      5,
		RemarksAnchor:       "Remarks:",
		RemarksPlaceholders: []string{"0", "-", "nil", "n/a", "na", "none", "nan"},
	}
}

// LoadLabels reads a YAML label profile. Sections left out of the file keep
// their defaults.
func LoadLabels(path string) (Labels, error) {
	labels := DefaultLabels()
	if strings.TrimSpace(path) == "" {
		return labels, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Labels{}, fmt.Errorf("read label profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &labels); err != nil {
		return Labels{}, fmt.Errorf("parse label profile %s: %w", path, err)
	}
	if err := labels.Validate(); err != nil {
		return Labels{}, fmt.Errorf("label profile %s: %w", path, err)
	}
	return labels, nil
}

func (l Labels) Validate() error {
	sections := map[string][]LabelBinding{
		"identity":   l.Identity,
		"period":     l.Period,
		"earnings":   l.Earnings,
		"deductions": l.Deductions,
	}
	for name, bindings := range sections {
		for i, b := range bindings {
			if strings.TrimSpace(b.Label) == "" {
				return fmt.Errorf("%s[%d]: label is required", name, i)
			}
			if !internal.IsKnownField(b.Field) {
				return fmt.Errorf("%s[%d]: unknown field %q", name, i, b.Field)
			}
		}
	}
	if strings.TrimSpace(l.AmountHeader) == "" {
		return fmt.Errorf("amount_header is required")
	}
	if l.HeaderScanRows <= 0 {
		return fmt.Errorf("header_scan_rows must be positive")
	}
	return nil
}
