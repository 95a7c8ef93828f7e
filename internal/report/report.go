// Package report ranks hooks by salience for humans.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/learnloop/internal/bucket"
	"github.com/TobiSchelling/learnloop/internal/normalize"
)

const title = "LEARNING LOOP REPORT"

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Row is one ranked hook within an audience.
type Row struct {
	Hook         normalize.HookType
	N            int
	Salience     float64
	ResponseRate float64
}

// Section ranks the hooks observed for one audience.
type Section struct {
	Audience normalize.AudienceSegment
	Rows     []Row
}

// Order returns the suggested research order, skipping the other hook.
func (s Section) Order() []normalize.HookType {
	var out []normalize.HookType
	for _, r := range s.Rows {
		if r.Hook != normalize.OtherHook {
			out = append(out, r.Hook)
		}
	}
	return out
}

// Report is the ranked view of one run.
type Report struct {
	Date       time.Time
	Overall    Section
	ByAudience []Section
}

// Build ranks every observed bucket by salience as of today. Ties keep the
// order in which buckets were first seen.
func Build(agg *bucket.Aggregator, today time.Time) *Report {
	sections := make(map[normalize.AudienceSegment]*Section)
	for _, k := range agg.Keys() {
		s := agg.Get(k)
		sec, ok := sections[k.Audience]
		if !ok {
			sec = &Section{Audience: k.Audience}
			sections[k.Audience] = sec
		}
		sec.Rows = append(sec.Rows, Row{
			Hook:         k.Hook,
			N:            s.N,
			Salience:     s.Salience(today),
			ResponseRate: s.ResponseRate(),
		})
	}
	for _, sec := range sections {
		sort.SliceStable(sec.Rows, func(i, j int) bool {
			return sec.Rows[i].Salience > sec.Rows[j].Salience
		})
	}

	r := &Report{Date: today, Overall: Section{Audience: normalize.AllAudiences}}
	if all, ok := sections[normalize.AllAudiences]; ok {
		r.Overall = *all
	}
	audiences := agg.Audiences()
	sort.Slice(audiences, func(i, j int) bool { return audiences[i] < audiences[j] })
	for _, a := range audiences {
		r.ByAudience = append(r.ByAudience, *sections[a])
	}
	return r
}

// Text renders the report as aligned plain text.
func (r *Report) Text() string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\n%s (%s)\n%s\n\n", rule, title, r.Date.Format(time.DateOnly), rule)

	b.WriteString("### BY HOOK TYPE (all audiences)\n\n")
	writeTextTable(&b, r.Overall.Rows)

	b.WriteString("\n### BY AUDIENCE SEGMENT\n")
	for _, sec := range r.ByAudience {
		fmt.Fprintf(&b, "\n**%s**\n", strings.ToUpper(string(sec.Audience)))
		writeTextTable(&b, sec.Rows)
	}

	b.WriteString("\n### RESEARCH PRIORITY (check hooks in this order)\n\n")
	for _, sec := range r.prioritySections() {
		fmt.Fprintf(&b, "%s: %s\n", sec.Audience, joinHooks(sec.Order()))
	}
	return b.String()
}

func writeTextTable(b *strings.Builder, rows []Row) {
	fmt.Fprintf(b, "%-20s %5s %10s %10s\n", "Hook", "N", "Salience", "Response%")
	b.WriteString(strings.Repeat("-", 50) + "\n")
	for _, row := range rows {
		fmt.Fprintf(b, "%-20s %5d %10.2f %9.1f%%\n", row.Hook, row.N, row.Salience, row.ResponseRate*100)
	}
}

// Markdown renders the report with GFM tables.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Learning loop report\n\n_As of %s_\n\n", r.Date.Format(time.DateOnly))

	b.WriteString("## By hook type (all audiences)\n\n")
	writeMarkdownTable(&b, r.Overall.Rows)

	b.WriteString("\n## By audience segment\n")
	for _, sec := range r.ByAudience {
		fmt.Fprintf(&b, "\n### %s\n\n", sec.Audience)
		writeMarkdownTable(&b, sec.Rows)
	}

	b.WriteString("\n## Research priority\n\n")
	for _, sec := range r.prioritySections() {
		fmt.Fprintf(&b, "- **%s**: %s\n", sec.Audience, joinHooks(sec.Order()))
	}
	return b.String()
}

func writeMarkdownTable(b *strings.Builder, rows []Row) {
	b.WriteString("| Hook | N | Salience | Response% |\n|---|---:|---:|---:|\n")
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %d | %.2f | %.1f%% |\n", row.Hook, row.N, row.Salience, row.ResponseRate*100)
	}
}

// HTML renders the markdown report to an HTML fragment.
func (r *Report) HTML() (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}

// prioritySections lists the aggregate ranking first, then each audience.
func (r *Report) prioritySections() []Section {
	out := make([]Section, 0, len(r.ByAudience)+1)
	if len(r.Overall.Rows) > 0 {
		out = append(out, r.Overall)
	}
	return append(out, r.ByAudience...)
}

func joinHooks(hooks []normalize.HookType) string {
	parts := make([]string, len(hooks))
	for i, h := range hooks {
		parts[i] = string(h)
	}
	return strings.Join(parts, " → ")
}
