package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/alnah/go-lipsync/internal/pipeline"
	"github.com/alnah/go-lipsync/internal/provider"
	"github.com/alnah/go-lipsync/internal/render"
)

// noopRenderer backs dry runs; the orchestrator never invokes it.
type noopRenderer struct{}

func (noopRenderer) Run(_ context.Context, index int, _ provider.Payload, _ string) render.Result {
	return render.Result{Index: index}
}

// formatList returns a sorted, comma-separated list of supported extensions
// for deterministic error messages.
func formatList(formats map[string]bool) string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(exts)
	return strings.Join(exts, ", ")
}

// printSummary renders the per-chunk outcome table and the run totals.
func printSummary(w io.Writer, report *pipeline.Report) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Chunk", "Span", "Status", "Detail"})

	for _, res := range report.Results {
		span := ""
		if res.Index < len(report.Chunks) {
			span = report.Chunks[res.Index].String()
			if i := strings.Index(span, ": "); i >= 0 {
				span = span[i+2:]
			}
		}
		status, detail := resultStatus(res)
		tw.AppendRow(table.Row{res.Index, span, status, detail})
	}
	tw.Render()

	fmt.Fprintf(w, "%d/%d chunks succeeded in %s\n",
		report.Succeeded(), len(report.Results), report.Elapsed.Round(time.Second))
	if n := len(report.Results); n > 0 && report.Elapsed > 0 && report.Succeeded() == n {
		perChunk := report.Elapsed / time.Duration(n)
		fmt.Fprintf(w, "average %s per chunk\n", perChunk.Round(time.Second))
	}
}

// printChunkPlan lists the chunks a dry run prepared.
func printChunkPlan(w io.Writer, report *pipeline.Report) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Chunk", "Span", "Duration", "File"})

	var total time.Duration
	for _, chunk := range report.Chunks {
		span := chunk.String()
		if i := strings.Index(span, ": "); i >= 0 {
			span = span[i+2:]
		}
		tw.AppendRow(table.Row{chunk.Index, span, chunk.Duration().Round(time.Millisecond), chunk.Path})
		total += chunk.Duration()
	}
	tw.Render()

	fmt.Fprintf(w, "%d chunk(s), %s total; nothing submitted (dry run)\n",
		len(report.Chunks), total.Round(time.Second))
}

func resultStatus(res render.Result) (string, string) {
	switch {
	case res.Succeeded():
		return "ok", res.Elapsed.Round(time.Second).String()
	case errors.Is(res.Err, pipeline.ErrSkipped):
		return "skipped", "not submitted"
	default:
		return "failed", res.Err.Error()
	}
}
