package internal

// RawGrid is the single input sheet in row-major order. Cells hold a string,
// a time.Time for date-formatted cells, or nil.
type RawGrid [][]any

// HeaderMap maps a normalized header label to its column index.
type HeaderMap map[string]int

type VesselBlock struct {
	VesselName     string
	HeaderRowIndex int
	Header         HeaderMap
	DataRows       []int
}

// Logical field names shared by the extractor, the label profile and the
// review export.
const (
	FieldVessel        = "vessel"
	FieldName          = "name"
	FieldRank          = "rank"
	FieldPeriodFrom    = "period_from"
	FieldPeriodTo      = "period_to"
	FieldDaysOnBoard   = "days_on_board"
	FieldBasicSalary   = "basic_salary"
	FieldFixedOT       = "fixed_ot"
	FieldLeavePay      = "leave_pay"
	FieldAllowance     = "allowance"
	FieldNetSalary     = "net_salary"
	FieldReimbursement = "reimbursement"
	FieldSubtotal      = "subtotal"
	FieldDeduction     = "deduction"
	FieldRelease       = "release"
	FieldRetaining     = "retaining"
	FieldRemittance    = "remittance"
	FieldRemarks       = "remarks"
)

// RecordFields lists every logical field in review-export column order.
var RecordFields = []string{
	FieldVessel, FieldName, FieldRank, FieldPeriodFrom, FieldPeriodTo, FieldDaysOnBoard,
	FieldBasicSalary, FieldFixedOT, FieldLeavePay, FieldAllowance, FieldNetSalary,
	FieldReimbursement, FieldSubtotal, FieldDeduction, FieldRelease, FieldRetaining,
	FieldRemittance, FieldRemarks,
}

// EmployeeRecord holds already formatted values. Missing or unparsable
// source values are empty strings.
type EmployeeRecord struct {
	Block     int
	RowNumber int

	Vessel      string
	Name        string
	Rank        string
	PeriodFrom  string
	PeriodTo    string
	DaysOnBoard string

	BasicSalary   string
	FixedOT       string
	LeavePay      string
	Allowance     string
	NetSalary     string
	Reimbursement string
	Subtotal      string
	Deduction     string
	Release       string
	Retaining     string
	Remittance    string

	Remarks string
}

// Field returns the value of a logical field, or "" for unknown names.
func (r EmployeeRecord) Field(name string) string {
	switch name {
	case FieldVessel:
		return r.Vessel
	case FieldName:
		return r.Name
	case FieldRank:
		return r.Rank
	case FieldPeriodFrom:
		return r.PeriodFrom
	case FieldPeriodTo:
		return r.PeriodTo
	case FieldDaysOnBoard:
		return r.DaysOnBoard
	case FieldBasicSalary:
		return r.BasicSalary
	case FieldFixedOT:
		return r.FixedOT
	case FieldLeavePay:
		return r.LeavePay
	case FieldAllowance:
		return r.Allowance
	case FieldNetSalary:
		return r.NetSalary
	case FieldReimbursement:
		return r.Reimbursement
	case FieldSubtotal:
		return r.Subtotal
	case FieldDeduction:
		return r.Deduction
	case FieldRelease:
		return r.Release
	case FieldRetaining:
		return r.Retaining
	case FieldRemittance:
		return r.Remittance
	case FieldRemarks:
		return r.Remarks
	default:
		return ""
	}
}

// IsKnownField reports whether name is one of RecordFields.
func IsKnownField(name string) bool {
	for _, f := range RecordFields {
		if f == name {
			return true
		}
	}
	return false
}

type ArchiveEntry struct {
	Path string
	Data []byte
}

type MailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type RunRow struct {
	ID        int
	TraceID   string
	Source    string
	MailID    *int
	Blocks    int
	Employees int
	Entries   int
	Status    string
	CreatedAt string
}
