package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"example.com/siwegate/internal/rules"
)

// SavePDF renders the report into a PDF document with labels in the given
// language.
func SavePDF(rep Report, out string, lang Language) error {
	tr := NewTranslator(lang)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(tr.T("report.title"), true)
	pdf.SetAuthor("siwectl", false)
	pdf.SetCreator("siwectl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	tre := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	addPDFTitle(pdf, tre(tr.T("report.title")))
	addSummarySection(pdf, tre, tr, rep)
	addDiagnosticsSection(pdf, tre, tr, rep.Diagnostics)
	addDigestSection(pdf, tre, tr, rep)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, tre func(string) string, tr Translator, rep Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tre(tr.T("summary.heading")))
	pdf.Ln(8)

	network := rep.Network
	chain := rep.ChainId
	if network != "" && chain != "" {
		chain = fmt.Sprintf("%s (%s)", chain, network)
	}

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: tr.T("summary.input"), value: emptyFallback(rep.Input, "-")},
		{label: tr.T("summary.profile"), value: emptyFallback(rep.Profile, "-")},
		{label: tr.T("summary.generated"), value: rep.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
		{label: tr.T("summary.chain"), value: emptyFallback(chain, "-")},
		{label: tr.T("summary.total"), value: strconv.Itoa(rep.Summary.Total)},
		{label: tr.T("summary.errors"), value: strconv.Itoa(rep.Summary.Errors)},
		{label: tr.T("summary.warnings"), value: strconv.Itoa(rep.Summary.Warnings)},
		{label: tr.T("summary.suggestions"), value: strconv.Itoa(rep.Summary.Suggestions)},
		{label: tr.T("summary.result"), value: passLabel(tr, rep.IsValid)},
	}
	for _, item := range items {
		pdf.CellFormat(55, 6, tre(item.label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tre(item.value), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addDiagnosticsSection(pdf *gofpdf.Fpdf, tre func(string) string, tr Translator, diags []rules.Diagnostic) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tre(tr.T("diagnostics.heading")))
	pdf.Ln(9)

	if len(diags) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tre(tr.T("diagnostics.none")), "", "L", false)
		return
	}

	for i, d := range diags {
		pdf.SetFont("Helvetica", "B", 10)
		header := fmt.Sprintf("%d. %s (%s)", i+1, d.Code, severityLabel(tr, d.Severity))
		pdf.MultiCell(0, 5, tre(header), "", "L", false)

		if msg := strings.TrimSpace(d.Message); msg != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tre(msg), "", "L", false)
		}

		if meta := diagnosticMetadata(tr, d); meta != "" {
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 4, tre(meta), "", "L", false)
		}

		if s := strings.TrimSpace(d.Suggestion); s != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 4, tre(tr.T("diagnostics.suggestion")+": "+s), "", "L", false)
		}

		pdf.Ln(2)
	}
}

// addDigestSection stamps the report's content address into the document as a
// scannable QR code with the digest string underneath, so a printed copy can
// still be matched against the JSON report it came from.
func addDigestSection(pdf *gofpdf.Fpdf, tre func(string) string, tr Translator, rep Report) {
	digest, err := Digest(rep)
	if err != nil {
		pdf.SetError(err)
		return
	}
	png, err := DigestQR(rep, 256)
	if err != nil {
		pdf.SetError(err)
		return
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tre(tr.T("digest.heading")))
	pdf.Ln(9)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("report-digest-qr", opts, bytes.NewReader(png))
	x, y := pdf.GetX(), pdf.GetY()
	pdf.ImageOptions("report-digest-qr", x, y, 30, 30, false, opts, 0, "")
	pdf.SetY(y + 32)

	pdf.SetFont("Courier", "", 8)
	pdf.MultiCell(0, 4, tre(digest), "", "L", false)
}

func passLabel(tr Translator, pass bool) string {
	if pass {
		return tr.T("summary.pass")
	}
	return tr.T("summary.fail")
}

func severityLabel(tr Translator, sev rules.Severity) string {
	switch sev {
	case rules.ERROR:
		return tr.T("severity.error")
	case rules.WARN:
		return tr.T("severity.warning")
	case rules.INFO:
		return tr.T("severity.info")
	}
	if s := strings.TrimSpace(string(sev)); s != "" {
		return s
	}
	return "-"
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func diagnosticMetadata(tr Translator, d rules.Diagnostic) string {
	parts := make([]string, 0, 3)
	if d.Field != "" {
		parts = append(parts, tr.T("diagnostics.field")+" "+d.Field)
	}
	if d.Line > 0 {
		pos := fmt.Sprintf("%s %d", tr.T("diagnostics.line"), d.Line)
		if d.Column > 0 {
			pos = fmt.Sprintf("%s, %s %d", pos, tr.T("diagnostics.column"), d.Column)
		}
		parts = append(parts, pos)
	}
	if d.Fixable {
		parts = append(parts, tr.T("diagnostics.fixable"))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " | ")
}
