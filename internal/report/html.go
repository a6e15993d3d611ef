package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/pavelanni/mockinterview/internal/i18n"
	"github.com/pavelanni/mockinterview/internal/model"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:52rem;margin:2rem auto;padding:0 1rem;color:#212529}
h1{color:#007bff}table{border-collapse:collapse;margin:1rem 0}td,th{border:1px solid #333;padding:.4rem .8rem;text-align:center}
th{background:#007bff;color:#fff}td{background:#f5f5dc}.answer,.feedback{background:#f8f9fa;padding:.6rem;white-space:pre-wrap}
.muted{color:#6c757d;font-size:.85rem}`

// HTML renders a session page in the language carried by ctx. Ongoing
// sessions show their answers so far; completed ones include the report.
func HTML(sess *model.Session) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &htmlPage{ctx: ctx}
		p.session(sess)
		_, err := io.WriteString(w, p.b.String())
		return err
	})
}

type htmlPage struct {
	ctx context.Context
	b   strings.Builder
}

func (p *htmlPage) t(id string) string {
	return templ.EscapeString(i18n.T(p.ctx, id))
}

func (p *htmlPage) printf(format string, args ...any) {
	fmt.Fprintf(&p.b, format, args...)
}

func (p *htmlPage) session(sess *model.Session) {
	meta := sess.Meta
	esc := templ.EscapeString[string]

	p.printf("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body>\n",
		p.t("AppTitle"), pageStyle)
	p.printf("<h1>%s</h1>\n<dl>\n", p.t("ReportTitle"))
	name := meta.Name
	if name == "" {
		name = i18n.T(p.ctx, "Anonymous")
	}
	domain := meta.Domain
	if domain == "" {
		domain = i18n.T(p.ctx, "General")
	}
	status := i18n.T(p.ctx, "StatusOngoing")
	if sess.Status == model.StatusCompleted {
		status = i18n.T(p.ctx, "StatusCompleted")
	}
	for _, f := range [][2]string{
		{"Candidate", name},
		{"Role", meta.Role},
		{"Domain", domain},
		{"Experience", meta.Experience},
		{"InterviewMode", i18n.Title(meta.Mode)},
		{"Provider", meta.Provider},
		{"Date", sess.CreatedAt.Format(dateLayout)},
		{"Status", status},
	} {
		p.printf("<dt>%s</dt><dd>%s</dd>\n", p.t(f[0]), esc(f[1]))
	}
	p.printf("</dl>\n")

	if rep := sess.FinalReport; rep != nil {
		p.printf("<h2>%s</h2>\n<table><tr><th>%s</th><th>%s</th></tr>\n",
			p.t("OverallPerformance"), p.t("Metric"), p.t("Score"))
		for _, row := range []struct {
			id    string
			score float64
		}{
			{"OverallScore", rep.OverallScore},
			{"Technical", rep.AvgTechnical},
			{"Communication", rep.AvgCommunication},
			{"Confidence", rep.AvgConfidence},
		} {
			p.printf("<tr><td>%s</td><td>%s</td></tr>\n", p.t(row.id), scoreText(row.score))
		}
		p.printf("</table>\n")
	}

	p.printf("<h2>%s</h2>\n", p.t("QuestionsAndAnswers"))
	if len(sess.Answers) == 0 {
		p.printf("<p>%s</p>\n", p.t("NoAnswersYet"))
	} else {
		p.printf("<p class=\"muted\">%s</p>\n", esc(i18n.Tp(p.ctx, "AnswersRecorded", len(sess.Answers))))
	}
	for _, a := range sess.Answers {
		p.answer(sess, a)
	}

	if rep := sess.FinalReport; rep != nil && len(rep.Resources) > 0 {
		p.printf("<h2>%s</h2>\n<ul>\n", p.t("RecommendedResources"))
		for _, r := range rep.Resources {
			p.printf("<li>%s</li>\n", esc(r))
		}
		p.printf("</ul>\n")
	}
	p.printf("</body></html>\n")
}

func (p *htmlPage) answer(sess *model.Session, a model.AnswerRecord) {
	esc := templ.EscapeString[string]
	ev := a.Evaluation

	p.printf("<section>\n<h3>%s</h3>\n",
		esc(i18n.Td(p.ctx, "QuestionN", map[string]any{"ID": a.QuestionID})))
	p.printf("<p class=\"muted\">%s: %d/10 | %s: %d/10 | %s: %d/10</p>\n",
		p.t("Technical"), ev.Scores.Technical,
		p.t("Communication"), ev.Scores.Communication,
		p.t("Confidence"), ev.Scores.Confidence)
	if q, ok := sess.Question(a.QuestionID); ok {
		p.printf("<p><strong>%s:</strong> %s</p>\n", p.t("QuestionLabel"), esc(q.Text))
	}
	p.printf("<p><strong>%s:</strong></p><div class=\"answer\">%s</div>\n", p.t("YourAnswer"), esc(a.Answer))
	if ev.Feedback != "" {
		p.printf("<p><strong>%s:</strong></p><div class=\"feedback\">%s</div>\n", p.t("AIFeedback"), esc(ev.Feedback))
	}
	if ev.ExamplesOrCorrections != "" {
		p.printf("<p><strong>%s:</strong></p><div class=\"feedback\">%s</div>\n",
			p.t("SuggestedImprovement"), esc(ev.ExamplesOrCorrections))
	}
	p.printf("</section>\n")
}
