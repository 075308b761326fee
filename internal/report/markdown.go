package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxChartSlices bounds the subdomain pie chart; smaller hosts are folded
// into "other".
const maxChartSlices = 8

// MarkdownWriter renders report Data as Markdown.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write outputs the full report.
func (w *MarkdownWriter) Write(d Data) error {
	md := markdown.NewMarkdown(w.output)

	w.writeSummary(md, d)
	w.writeTopWords(md, d)
	w.writeSubdomains(md, d)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated %s*", d.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	return md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, d Data) {
	md.H1("Crawl Report")
	md.PlainText("")

	longest := "-"
	if d.LongestPageURL != "" {
		longest = "`" + d.LongestPageURL + "`"
	}

	rows := [][]string{
		{"Unique Pages", strconv.Itoa(d.UniquePages)},
		{"Pages Fetched (2xx)", strconv.Itoa(d.CompletedPages)},
		{"Pages Analyzed", strconv.Itoa(d.ProcessedPages)},
		{"Longest Page", longest},
		{"Longest Page Words", strconv.Itoa(d.MaxWordCount)},
		{"Subdomains", strconv.Itoa(len(d.Subdomains))},
	}
	if d.StartedAt != "" {
		rows = append(rows, []string{"Crawl Started", d.StartedAt})
	}
	if d.FinishedAt != "" {
		rows = append(rows, []string{"Crawl Finished", d.FinishedAt})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if d.ProcessedPages == 0 {
		md.Note("No pages have been analyzed yet. Word statistics are empty.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeTopWords(md *markdown.Markdown, d Data) {
	md.H2("Most Common Words")
	md.PlainText("")

	if len(d.TopWords) == 0 {
		md.PlainText("No words recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(d.TopWords))
	for i, wc := range d.TopWords {
		rows[i] = []string{strconv.Itoa(i + 1), wc.Word, strconv.Itoa(wc.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Word", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSubdomains(md *markdown.Markdown, d Data) {
	md.H2("Subdomains")
	md.PlainText("")

	if len(d.Subdomains) == 0 {
		md.PlainText("No pages recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(d.Subdomains))
	for i, s := range d.Subdomains {
		rows[i] = []string{s.Host, strconv.Itoa(s.Pages)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Host", "Unique Pages"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, d.Subdomains)
}

// writePieChart writes a mermaid pie chart of pages per host.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, subdomains []SubdomainCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per Subdomain"),
		piechart.WithShowData(true),
	)

	for _, s := range chartSlices(subdomains) {
		chart.LabelAndIntValue(s.Host, uint64(s.Pages))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// chartSlices keeps the largest hosts and folds the rest into "other".
func chartSlices(subdomains []SubdomainCount) []SubdomainCount {
	if len(subdomains) <= maxChartSlices {
		return subdomains
	}

	sorted := append([]SubdomainCount(nil), subdomains...)
	sortByPages(sorted)

	out := append([]SubdomainCount(nil), sorted[:maxChartSlices-1]...)
	other := SubdomainCount{Host: "other"}
	for _, s := range sorted[maxChartSlices-1:] {
		other.Pages += s.Pages
	}
	return append(out, other)
}
