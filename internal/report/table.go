package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics"
	evalmetrics "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/qrels"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// RenderTopResults prints rows as model, index, qid, docno, score and rank
// columns, scores to four decimals.
func RenderTopResults(w io.Writer, rows []analytics.Row) {
	table := newTable(w, []string{"model", "index", "qid", "docno", "score", "rank"})
	for _, r := range rows {
		table.Append([]string{
			r.Model, r.Variant, r.QID, r.DocNo,
			strconv.FormatFloat(r.Score, 'f', 4, 64),
			strconv.Itoa(r.Rank),
		})
	}
	table.Render()
}

// RenderSummary prints one line per (index, model) with the mean of every
// metric and the number of evaluated queries.
func RenderSummary(w io.Writer, summaries []analytics.EvaluationRecord) {
	type combo struct{ variant, model string }
	means := make(map[combo]map[string]float64)
	evaluated := make(map[combo]int)
	var order []combo
	for _, r := range summaries {
		if r.QID != analytics.AllQueries {
			continue
		}
		c := combo{r.Variant, r.Model}
		if means[c] == nil {
			means[c] = make(map[string]float64)
			order = append(order, c)
		}
		means[c][r.Metric] = r.Value
		evaluated[c] = r.Evaluated
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].variant != order[j].variant {
			return order[i].variant < order[j].variant
		}
		return order[i].model < order[j].model
	})

	header := append([]string{"index", "model", "queries"}, evalmetrics.Names...)
	table := newTable(w, header)
	for _, c := range order {
		line := []string{c.variant, c.model, strconv.Itoa(evaluated[c])}
		for _, name := range evalmetrics.Names {
			v, ok := means[c][name]
			if !ok {
				line = append(line, "-")
				continue
			}
			line = append(line, strconv.FormatFloat(v, 'f', 4, 64))
		}
		table.Append(line)
	}
	table.Render()
}

// RenderIndexStats prints the collection statistics of every built variant.
func RenderIndexStats(w io.Writer, reports []indexer.BuildReport) {
	table := newTable(w, []string{"index", "documents", "unique terms", "tokens", "avg length", "build time", "status"})
	for _, r := range reports {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		table.Append([]string{
			r.Variant.String(),
			strconv.Itoa(r.Stats.DocCount),
			strconv.Itoa(r.Stats.UniqueTerms),
			strconv.FormatInt(r.Stats.TotalTokens, 10),
			fmt.Sprintf("%.1f terms/doc", r.Stats.AvgDocLength),
			r.Duration.Round(time.Microsecond).String(),
			status,
		})
	}
	table.Render()
}

// RenderFailures prints failed combinations. Nothing is printed when there
// are none.
func RenderFailures(w io.Writer, failures []analytics.Failure) {
	if len(failures) == 0 {
		return
	}
	table := newTable(w, []string{"index", "model", "qid", "error"})
	for _, f := range failures {
		qid := f.QID
		if qid == "" {
			qid = "*"
		}
		table.Append([]string{f.Variant, f.Model, qid, f.Error})
	}
	table.Render()
}

// RenderQrelsReport prints the judgment verification summary.
func RenderQrelsReport(w io.Writer, r qrels.LoadReport) {
	table := newTable(w, []string{"judgments", "value"})
	table.Append([]string{"lines", strconv.Itoa(r.Lines)})
	table.Append([]string{"valid", strconv.Itoa(r.Accepted)})
	table.Append([]string{"dropped", strconv.Itoa(r.Dropped)})
	table.Append([]string{"duplicates", strconv.Itoa(r.Duplicates)})
	table.Append([]string{"unique qids", strconv.Itoa(r.QIDs)})

	labels := make([]int, 0, len(r.Labels))
	for l := range r.Labels {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	for _, l := range labels {
		table.Append([]string{fmt.Sprintf("label %d", l), strconv.Itoa(r.Labels[l])})
	}
	reasons := make([]string, 0, len(r.DroppedByReason))
	for reason := range r.DroppedByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		table.Append([]string{"dropped: " + reason, strconv.Itoa(r.DroppedByReason[reason])})
	}
	table.Render()
}
