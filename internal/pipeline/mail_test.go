package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"payslip/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func buildMail(t *testing.T, subject, text, html string, attachments map[string][]byte) []byte {
	t.Helper()
	b := enmime.Builder().
		From("Crewing Office", "crewing@example.com").
		To("Payroll", "payroll@example.com").
		Subject(subject).
		Text([]byte(text))
	if html != "" {
		b = b.HTML([]byte(html))
	}
	for name, data := range attachments {
		b = b.AddAttachment(data, xlsxContentType, name)
	}
	part, err := b.Build()
	require.NoError(t, err)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, part.Encode(buf))
	return buf.Bytes()
}

func TestWorkbooksFromMailAttachment(t *testing.T) {
	raw := buildMail(t, "Payroll March", "Please find the payroll attached.", "", map[string][]byte{
		"March payroll.xlsx": mkXLSX(payrollRows()),
	})

	payload, err := WorkbooksFromMail(raw)
	require.NoError(t, err)
	assert.Equal(t, "Payroll March", payload.Subject)
	assert.Equal(t, []string{"March payroll.xlsx"}, payload.AttachmentNames)
	require.Len(t, payload.Workbooks, 1)
	assert.Equal(t, "March payroll.xlsx", payload.Workbooks[0].Filename)

	blocks, records, err := Inspect(payload.Workbooks[0].Filename, payload.Workbooks[0].Data)
	require.NoError(t, err)
	assert.Len(t, blocks, 2)
	assert.Len(t, records, 3)
}

func TestWorkbooksFromMailHTMLFallback(t *testing.T) {
	html := `<p>Vessel Name: ALPHA</p><table>
<tr><td>Vessel Name: ALPHA</td></tr>
<tr><td>S/N</td><td>Name</td><td>Basic Salary</td></tr>
<tr><td>1</td><td>Tony</td><td>1000</td></tr>
</table>`
	payload, err := WorkbooksFromMail(buildMail(t, "Salary", "see below", html, nil))
	require.NoError(t, err)
	require.Len(t, payload.Workbooks, 1)
	assert.Equal(t, htmlBodyName, payload.Workbooks[0].Filename)

	payload, err = WorkbooksFromMail(buildMail(t, "Lunch", "no tables", "<p>hi</p>", nil))
	require.NoError(t, err)
	assert.Empty(t, payload.Workbooks)
}

func TestDetectPayrollMail(t *testing.T) {
	res := DetectPayrollMail("Crew payroll March", "", "", []string{"march.xlsx"})
	assert.True(t, res.IsPayroll)
	assert.Equal(t, "rules_positive", res.Reason)

	res = DetectPayrollMail("Lunch on Friday", "see you there", "", []string{"menu.pdf"})
	assert.False(t, res.IsPayroll)
	assert.Equal(t, "rules_negative", res.Reason)

	res = DetectPayrollMail("", "", "<table><tr><td>S/N</td></tr></table> payroll salary", nil)
	assert.True(t, res.IsPayroll)
}

func storeMail(t *testing.T, db *storage.DB, messageID string, raw []byte) int {
	t.Helper()
	path := filepath.Join(t.TempDir(), messageID+".eml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	row, err := db.UpsertMail("imap", messageID, "", "crewing@example.com", "2024-04-01T00:00:00Z", messageID, path, storage.MailFetched)
	require.NoError(t, err)
	return row.ID
}

func TestMailProcessor(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	outDir := filepath.Join(tmp, "out", "payslips")
	proc := NewMailProcessor(db, newTestGenerator(t, db), outDir, zap.NewNop())

	payrollID := storeMail(t, db, "payroll", buildMail(t, "Payroll March", "attached", "", map[string][]byte{
		"March: payroll.xlsx": mkXLSX(payrollRows()),
	}))
	lunchID := storeMail(t, db, "lunch", buildMail(t, "Lunch", "friday?", "", nil))
	emptyID := storeMail(t, db, "empty", buildMail(t, "Payroll April", "attached", "", map[string][]byte{
		"april.xlsx": mkXLSX([][]any{{"nothing yet"}}),
	}))

	mails, employees, err := proc.ProcessPending(10, "")
	require.NoError(t, err)
	assert.Equal(t, 3, mails)
	assert.Equal(t, 3, employees)

	archive := filepath.Join(outDir, "1_March payroll.zip")
	require.Equal(t, 1, payrollID)
	blob, err := os.ReadFile(archive)
	require.NoError(t, err)
	names, _ := unzip(t, blob)
	assert.Len(t, names, 3)

	for id, want := range map[int]string{payrollID: storage.MailProcessed, lunchID: storage.MailSkipped, emptyID: storage.MailEmpty} {
		row, err := db.GetMailByID(id)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, want, row.Status, "mail %d", id)
	}

	pending, err := db.ListMailsByStatus(storage.MailFetched, "", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMailProcessorPendingByProvider(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	older, err := db.UpsertMail("gmail", "g1", "", "x", "2024-03-01T00:00:00Z", "g1", filepath.Join(tmp, "missing.eml"), storage.MailFetched)
	require.NoError(t, err)
	imapID := storeMail(t, db, "payroll", buildMail(t, "Payroll March", "attached", "", map[string][]byte{
		"march.xlsx": mkXLSX(payrollRows()),
	}))

	proc := NewMailProcessor(db, newTestGenerator(t, db), filepath.Join(tmp, "out"), zap.NewNop())
	mails, employees, err := proc.ProcessPending(1, "imap")
	require.NoError(t, err)
	assert.Equal(t, 1, mails)
	assert.Equal(t, 3, employees)

	row, err := db.GetMailByID(imapID)
	require.NoError(t, err)
	assert.Equal(t, storage.MailProcessed, row.Status)

	row, err = db.GetMailByID(older.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.MailFetched, row.Status)
}

func TestMailProcessorUnreadableRawMarksFailed(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	mail, err := db.UpsertMail("imap", "gone", "", "x", "2024-03-01T00:00:00Z", "gone", filepath.Join(tmp, "gone.eml"), storage.MailFetched)
	require.NoError(t, err)

	proc := NewMailProcessor(db, newTestGenerator(t, db), filepath.Join(tmp, "out"), zap.NewNop())
	_, err = proc.ProcessMail(mail)
	require.Error(t, err)

	row, err := db.GetMailByID(mail.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.MailFailed, row.Status)
}
