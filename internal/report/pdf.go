package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"solaudit/internal/models"
)

// Page geometry in millimeters on A4 portrait.
const (
	marginLeft   = 15.0
	marginTop    = 15.0
	pageBottom   = 280.0
	contentWidth = 180.0

	lineHeight     = 5.0
	headingHeight  = 8.0
	codeLineHeight = 4.0

	codeLinesPerPage = 50
	codeLineWidth    = 110
)

// Filename derives the download filename for an audit report
func Filename(auditName string) string {
	name := strings.TrimSpace(auditName)
	if name == "" {
		name = "contract"
	}
	name = strings.Join(strings.Fields(name), "_")
	return name + "_audit_report.pdf"
}

// Generate renders an audit result into a PDF document. The output is
// all-or-nothing: any drawing error aborts the export and no bytes are
// returned.
func Generate(audit *models.AuditResult) ([]byte, error) {
	e := &exporter{
		pdf: fpdf.New("P", "mm", "A4", ""),
		cur: NewCursor(marginTop, pageBottom),
	}
	e.pdf.SetAutoPageBreak(false, 0)
	e.pdf.AddPage()

	e.header(audit)
	e.summary(audit)
	e.scoreTable(audit)
	e.findings(audit)
	e.codeListing(audit)

	if err := e.pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var buf bytes.Buffer
	if err := e.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

// exporter pairs the drawing surface with the pagination cursor
type exporter struct {
	pdf *fpdf.Fpdf
	cur *Cursor
}

// ensure guarantees that a block of the given height fits on the current
// page, starting a new one if it does not.
func (e *exporter) ensure(height float64) {
	if !e.cur.Fits(height) {
		e.cur.Break()
		e.pdf.AddPage()
	}
}

// newPage starts a fresh page unconditionally
func (e *exporter) newPage() {
	e.cur.Break()
	e.pdf.AddPage()
}

// cell draws one text cell at the cursor and advances past it
func (e *exporter) cell(height float64, text, align string) {
	e.ensure(height)
	e.pdf.SetXY(marginLeft, e.cur.Y())
	e.pdf.CellFormat(contentWidth, height, text, "", 0, align, false, 0, "")
	e.cur.Advance(height)
}

// wrapped draws word-wrapped text line by line so each line respects the
// page-bottom threshold independently.
func (e *exporter) wrapped(text string, width float64) {
	for _, line := range e.pdf.SplitText(text, width) {
		e.ensure(lineHeight)
		e.pdf.SetXY(marginLeft, e.cur.Y())
		e.pdf.CellFormat(width, lineHeight, line, "", 0, "L", false, 0, "")
		e.cur.Advance(lineHeight)
	}
}

func (e *exporter) header(audit *models.AuditResult) {
	e.pdf.SetFont("Helvetica", "B", 18)
	e.pdf.SetTextColor(33, 37, 41)
	e.cell(10, "Smart Contract Audit Report", "C")

	e.pdf.SetFont("Helvetica", "", 11)
	e.pdf.SetTextColor(108, 117, 125)
	e.cell(lineHeight, audit.Name, "C")
	e.cell(lineHeight, audit.CreatedAt.Format(time.DateOnly)+" · "+string(audit.SourceType)+" submission", "C")
	e.cur.Advance(4)

	score := models.AggregateScore(audit.Categories)
	label := models.ScoreLabel(score)

	e.pdf.SetFont("Helvetica", "B", 26)
	e.pdf.SetTextColor(scoreColor(score).R, scoreColor(score).G, scoreColor(score).B)
	e.cell(12, fmt.Sprintf("%d / 100", score), "C")
	e.pdf.SetFont("Helvetica", "B", 12)
	e.cell(lineHeight+1, label, "C")
	e.pdf.SetTextColor(33, 37, 41)
	e.cur.Advance(6)
}

func (e *exporter) summary(audit *models.AuditResult) {
	e.sectionTitle("Summary")
	e.pdf.SetFont("Helvetica", "", 10)
	e.wrapped(audit.Summary, contentWidth)
	e.cur.Advance(4)
}

func (e *exporter) scoreTable(audit *models.AuditResult) {
	const rowHeight = 7.0

	e.sectionTitle("Scores by Category")

	// Header + all rows move to a fresh page together when they do not fit
	e.ensure(rowHeight * float64(len(audit.Categories)+1))

	e.pdf.SetFont("Helvetica", "B", 10)
	e.pdf.SetFillColor(233, 236, 239)
	e.pdf.SetXY(marginLeft, e.cur.Y())
	e.pdf.CellFormat(90, rowHeight, "Category", "1", 0, "L", true, 0, "")
	e.pdf.CellFormat(45, rowHeight, "Score", "1", 0, "C", true, 0, "")
	e.pdf.CellFormat(45, rowHeight, "Findings", "1", 0, "C", true, 0, "")
	e.cur.Advance(rowHeight)

	e.pdf.SetFont("Helvetica", "", 10)
	for _, cat := range audit.Categories {
		e.pdf.SetXY(marginLeft, e.cur.Y())
		e.pdf.CellFormat(90, rowHeight, cat.Name, "1", 0, "L", false, 0, "")
		e.pdf.CellFormat(45, rowHeight, fmt.Sprintf("%d / %d", cat.Score, cat.MaxScore), "1", 0, "C", false, 0, "")
		e.pdf.CellFormat(45, rowHeight, fmt.Sprintf("%d", len(cat.Issues)), "1", 0, "C", false, 0, "")
		e.cur.Advance(rowHeight)
	}
	e.cur.Advance(4)
}

func (e *exporter) findings(audit *models.AuditResult) {
	e.sectionTitle("Detailed Findings")

	for _, cat := range audit.Categories {
		e.ensure(headingHeight + 2*lineHeight)
		e.pdf.SetFont("Helvetica", "B", 12)
		e.pdf.SetTextColor(33, 37, 41)
		e.cell(headingHeight, fmt.Sprintf("%s (%d/%d)", cat.Name, cat.Score, cat.MaxScore), "L")

		e.pdf.SetFont("Helvetica", "", 10)
		e.pdf.SetTextColor(108, 117, 125)
		e.wrapped(cat.Description, contentWidth)
		e.pdf.SetTextColor(33, 37, 41)
		e.cur.Advance(2)

		if len(cat.Issues) == 0 {
			e.pdf.SetFont("Helvetica", "I", 10)
			e.cell(lineHeight, "No findings in this category.", "L")
			e.cur.Advance(3)
			continue
		}

		for _, issue := range cat.Issues {
			e.issueBlock(issue)
		}
		e.cur.Advance(3)
	}
}

// issueBlock draws the severity badge and issue text. The badge and title
// stay on the same page; description lines may flow over.
func (e *exporter) issueBlock(issue models.AuditIssue) {
	const badgeWidth = 24.0
	const badgeHeight = 6.0

	e.ensure(badgeHeight + 2*lineHeight)

	c := issue.Severity.Color()
	e.pdf.SetFillColor(c.R, c.G, c.B)
	e.pdf.SetTextColor(255, 255, 255)
	e.pdf.SetFont("Helvetica", "B", 9)
	e.pdf.SetXY(marginLeft, e.cur.Y())
	e.pdf.CellFormat(badgeWidth, badgeHeight, strings.ToUpper(string(issue.Severity)), "", 0, "C", true, 0, "")

	e.pdf.SetTextColor(33, 37, 41)
	e.pdf.SetFont("Helvetica", "B", 10)
	e.pdf.CellFormat(contentWidth-badgeWidth-2, badgeHeight, " "+issue.Title, "", 0, "L", false, 0, "")
	e.cur.Advance(badgeHeight + 1)

	e.pdf.SetFont("Helvetica", "", 10)
	e.wrapped(issue.Description, contentWidth)

	if issue.CodeReference != "" {
		e.pdf.SetFont("Courier", "", 9)
		e.pdf.SetTextColor(108, 117, 125)
		e.wrapped(issue.CodeReference, contentWidth)
		e.pdf.SetTextColor(33, 37, 41)
	}

	e.pdf.SetFont("Helvetica", "I", 10)
	e.wrapped("Recommendation: "+issue.Recommendation, contentWidth)
	e.cur.Advance(3)
}

// codeListing renders the audited source with line numbers, 50 lines per
// page, starting on a fresh page.
func (e *exporter) codeListing(audit *models.AuditResult) {
	lines := SplitCodeLines(audit.Code)
	pages := PaginateLines(lines, codeLinesPerPage)
	if pages == nil {
		return
	}

	lineNo := 1
	for i, page := range pages {
		e.newPage()
		if i == 0 {
			e.pdf.SetFont("Helvetica", "B", 14)
			e.cell(headingHeight, "Audited Source Code", "L")
			e.cur.Advance(2)
		}

		e.pdf.SetFont("Courier", "", 8)
		for _, line := range page {
			e.pdf.SetXY(marginLeft, e.cur.Y())
			e.pdf.SetTextColor(173, 181, 189)
			e.pdf.CellFormat(10, codeLineHeight, fmt.Sprintf("%d", lineNo), "", 0, "R", false, 0, "")
			e.pdf.SetTextColor(33, 37, 41)
			e.pdf.CellFormat(contentWidth-12, codeLineHeight, " "+TruncateLine(line, codeLineWidth), "", 0, "L", false, 0, "")
			e.cur.Advance(codeLineHeight)
			lineNo++
		}
	}
}

func (e *exporter) sectionTitle(title string) {
	e.ensure(headingHeight + 2*lineHeight)
	e.pdf.SetFont("Helvetica", "B", 14)
	e.pdf.SetTextColor(33, 37, 41)
	e.pdf.SetXY(marginLeft, e.cur.Y())
	e.pdf.CellFormat(contentWidth, headingHeight, title, "B", 0, "L", false, 0, "")
	e.cur.Advance(headingHeight + 2)
}

// scoreColor picks the display color for the overall score using the same
// thresholds as the qualitative labels.
func scoreColor(score int) models.RGB {
	switch {
	case score >= 75:
		return models.SeverityLow.Color() // green
	case score >= 60:
		return models.SeverityMedium.Color() // amber
	}
	return models.SeverityHigh.Color() // red
}
