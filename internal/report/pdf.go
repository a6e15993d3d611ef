package report

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/pavelanni/mockinterview/internal/i18n"
	"github.com/pavelanni/mockinterview/internal/model"
)

// The core PDF fonts only cover cp1252, so PDF labels are always English.
const pdfLang = "en"

const (
	pageMargin = 25.0
	lineHeight = 6.0
)

// PDF renders a completed session. now stamps the file name and footer.
func PDF(ctx context.Context, sess *model.Session, kind Kind, now time.Time) (*Document, error) {
	if err := checkCompleted(sess); err != nil {
		return nil, err
	}
	ctx = i18n.WithLang(ctx, pdfLang)

	w := newPDFWriter()
	switch kind {
	case KindFull:
		w.full(ctx, sess, now)
	case KindSummary:
		w.summary(ctx, sess, now)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render %s pdf: %w", kind, err)
	}
	return &Document{
		Filename:    Filename(kind, sess.Meta.Name, now),
		ContentType: ContentTypePDF,
		Data:        buf.Bytes(),
	}, nil
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFWriter() *pdfWriter {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Interview report", true)
	pdf.AddPage()
	return &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (w *pdfWriter) full(ctx context.Context, sess *model.Session, now time.Time) {
	meta := sess.Meta
	rep := sess.FinalReport

	w.title(i18n.T(ctx, "ReportTitle"))
	w.field(i18n.T(ctx, "Candidate"), candidateName(ctx, meta.Name))
	w.field(i18n.T(ctx, "Role"), meta.Role)
	w.field(i18n.T(ctx, "Domain"), domainName(ctx, meta.Domain))
	w.field(i18n.T(ctx, "Experience"), meta.Experience)
	w.field(i18n.T(ctx, "InterviewMode"), i18n.Title(meta.Mode))
	w.field(i18n.T(ctx, "Date"), now.Format(dateLayout))
	w.pdf.Ln(8)

	w.heading(i18n.T(ctx, "OverallPerformance"))
	w.table(i18n.T(ctx, "Metric"), i18n.T(ctx, "Score"), [][2]string{
		{i18n.T(ctx, "OverallScore"), scoreText(rep.OverallScore)},
		{i18n.T(ctx, "Technical"), scoreText(rep.AvgTechnical)},
		{i18n.T(ctx, "Communication"), scoreText(rep.AvgCommunication)},
		{i18n.T(ctx, "Confidence"), scoreText(rep.AvgConfidence)},
	})
	w.pdf.Ln(8)

	w.heading(i18n.T(ctx, "QuestionsAndAnswers"))
	for _, a := range sess.Answers {
		q, ok := sess.Question(a.QuestionID)
		if !ok {
			continue
		}
		ev := a.Evaluation
		w.subheading(fmt.Sprintf("%s | %s: %d/10 | %s: %d/10 | %s: %d/10",
			i18n.Td(ctx, "QuestionN", map[string]any{"ID": a.QuestionID}),
			i18n.T(ctx, "Technical"), ev.Scores.Technical,
			i18n.T(ctx, "Communication"), ev.Scores.Communication,
			i18n.T(ctx, "Confidence"), ev.Scores.Confidence))
		w.field(i18n.T(ctx, "QuestionLabel"), q.Text)
		w.block(i18n.T(ctx, "YourAnswer"), a.Answer)
		if ev.Feedback != "" {
			w.block(i18n.T(ctx, "AIFeedback"), ev.Feedback)
		}
		if ev.ExamplesOrCorrections != "" {
			w.block(i18n.T(ctx, "SuggestedImprovement"), ev.ExamplesOrCorrections)
		}
		w.pdf.Ln(4)
	}

	w.resources(i18n.T(ctx, "RecommendedResources"), rep.Resources)
	w.footer(ctx, now)
}

func (w *pdfWriter) summary(ctx context.Context, sess *model.Session, now time.Time) {
	meta := sess.Meta
	rep := sess.FinalReport
	mode := i18n.Title(meta.Mode)

	w.title(i18n.T(ctx, "SummaryTitle"))
	w.field(i18n.T(ctx, "Candidate"), candidateName(ctx, meta.Name))
	w.field(i18n.T(ctx, "Role"), meta.Role)
	w.field(i18n.T(ctx, "InterviewMode"), mode)
	w.field(i18n.T(ctx, "Date"), now.Format(dateLayout))
	w.pdf.Ln(8)

	w.heading(i18n.T(ctx, "PerformanceOverview"))
	w.heading(fmt.Sprintf("%s: %s", i18n.T(ctx, "OverallScore"), scoreText(rep.OverallScore)))
	w.table(i18n.T(ctx, "Metric"), i18n.T(ctx, "Score"), [][2]string{
		{i18n.T(ctx, "Technical"), scoreText(rep.AvgTechnical)},
		{i18n.T(ctx, "Communication"), scoreText(rep.AvgCommunication)},
		{i18n.T(ctx, "Confidence"), scoreText(rep.AvgConfidence)},
	})
	w.pdf.Ln(8)

	w.heading(i18n.T(ctx, "SessionDetails"))
	w.table(i18n.T(ctx, "QuestionsAnswered"), strconv.Itoa(rep.NQuestions), [][2]string{
		{i18n.T(ctx, "InterviewMode"), mode},
		{i18n.T(ctx, "TargetRole"), meta.Role},
	})
	w.pdf.Ln(8)

	w.resources(i18n.T(ctx, "KeyResources"), rep.Resources)
	w.footer(ctx, now)
}

func (w *pdfWriter) title(s string) {
	w.pdf.SetFont("Helvetica", "B", 22)
	w.pdf.SetTextColor(0, 123, 255)
	w.pdf.CellFormat(0, 12, w.tr(s), "", 1, "C", false, 0, "")
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Ln(4)
}

func (w *pdfWriter) heading(s string) {
	w.pdf.SetFont("Helvetica", "B", 15)
	w.pdf.SetTextColor(52, 58, 64)
	w.pdf.MultiCell(0, 9, w.tr(s), "", "L", false)
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Ln(2)
}

func (w *pdfWriter) subheading(s string) {
	w.pdf.SetFont("Helvetica", "B", 11)
	w.pdf.SetTextColor(73, 80, 87)
	w.pdf.MultiCell(0, 7, w.tr(s), "", "L", false)
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Ln(1)
}

func (w *pdfWriter) field(label, value string) {
	w.pdf.SetFont("Helvetica", "B", 11)
	labelText := w.tr(label + ": ")
	w.pdf.CellFormat(w.pdf.GetStringWidth(labelText)+1, lineHeight, labelText, "", 0, "L", false, 0, "")
	w.pdf.SetFont("Helvetica", "", 11)
	w.pdf.MultiCell(0, lineHeight, w.tr(value), "", "L", false)
}

func (w *pdfWriter) block(label, body string) {
	w.pdf.SetFont("Helvetica", "B", 11)
	w.pdf.CellFormat(0, lineHeight, w.tr(label+":"), "", 1, "L", false, 0, "")
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.SetFillColor(248, 249, 250)
	w.pdf.MultiCell(0, 5, w.tr(body), "", "L", true)
	w.pdf.Ln(2)
}

func (w *pdfWriter) table(head1, head2 string, rows [][2]string) {
	const col1, col2 = 55.0, 45.0
	w.pdf.SetFont("Helvetica", "B", 11)
	w.pdf.SetFillColor(0, 123, 255)
	w.pdf.SetTextColor(255, 255, 255)
	w.pdf.CellFormat(col1, 8, w.tr(head1), "1", 0, "C", true, 0, "")
	w.pdf.CellFormat(col2, 8, w.tr(head2), "1", 1, "C", true, 0, "")

	w.pdf.SetFont("Helvetica", "", 11)
	w.pdf.SetFillColor(245, 245, 220)
	w.pdf.SetTextColor(0, 0, 0)
	for _, r := range rows {
		w.pdf.CellFormat(col1, 7, w.tr(r[0]), "1", 0, "C", true, 0, "")
		w.pdf.CellFormat(col2, 7, w.tr(r[1]), "1", 1, "C", true, 0, "")
	}
}

func (w *pdfWriter) resources(heading string, items []string) {
	if len(items) == 0 {
		return
	}
	w.heading(heading)
	w.pdf.SetFont("Helvetica", "", 11)
	for _, r := range items {
		w.pdf.MultiCell(0, lineHeight, w.tr("- "+r), "", "L", false)
		w.pdf.Ln(1)
	}
}

func (w *pdfWriter) footer(ctx context.Context, now time.Time) {
	w.pdf.Ln(8)
	w.pdf.SetFont("Helvetica", "I", 9)
	w.pdf.SetTextColor(108, 117, 125)
	w.pdf.MultiCell(0, 5, w.tr(i18n.Td(ctx, "GeneratedBy", map[string]any{"Date": now.Format(dateLayout)})), "", "L", false)
}

func candidateName(ctx context.Context, name string) string {
	if name == "" {
		return i18n.T(ctx, "Anonymous")
	}
	return name
}

func domainName(ctx context.Context, domain string) string {
	if domain == "" {
		return i18n.T(ctx, "General")
	}
	return domain
}
