package report

import (
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/learnloop/internal/bucket"
	n "github.com/TobiSchelling/learnloop/internal/normalize"
)

func testAgg(today time.Time) *bucket.Aggregator {
	old := today.AddDate(0, 0, -70)
	return bucket.Aggregate([]n.Activity{
		{Hook: n.Funding, Audience: n.SeedStage, Response: n.NoReply, Date: &old},
		{Hook: n.JobSignal, Audience: n.YCFounder, Response: n.Meeting, Date: &today},
		{Hook: n.OtherHook, Audience: n.YCFounder, Response: n.Meeting, Date: &today},
		{Hook: n.RecentPost, Audience: n.YCFounder, Response: n.Positive, Date: &today},
	})
}

func TestBuildRanksBySalience(t *testing.T) {
	today := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	r := Build(testAgg(today), today)

	if r.Overall.Audience != n.AllAudiences {
		t.Errorf("expected overall section for all, got %q", r.Overall.Audience)
	}
	if len(r.Overall.Rows) != 4 {
		t.Fatalf("expected 4 overall rows, got %d", len(r.Overall.Rows))
	}
	// job_signal and other tie at 0.80; first seen wins.
	want := []n.HookType{n.JobSignal, n.OtherHook, n.RecentPost, n.Funding}
	for i, h := range want {
		if r.Overall.Rows[i].Hook != h {
			t.Errorf("row %d: expected %q, got %q", i, h, r.Overall.Rows[i].Hook)
		}
	}

	if len(r.ByAudience) != 2 {
		t.Fatalf("expected 2 audience sections, got %d", len(r.ByAudience))
	}
	if r.ByAudience[0].Audience != n.SeedStage || r.ByAudience[1].Audience != n.YCFounder {
		t.Errorf("expected audiences sorted by name, got %q, %q", r.ByAudience[0].Audience, r.ByAudience[1].Audience)
	}
}

func TestSectionOrderSkipsOther(t *testing.T) {
	today := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	r := Build(testAgg(today), today)

	order := r.ByAudience[1].Order()
	if len(order) != 2 || order[0] != n.JobSignal || order[1] != n.RecentPost {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestText(t *testing.T) {
	today := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	text := Build(testAgg(today), today).Text()

	for _, want := range []string{
		"LEARNING LOOP REPORT (2026-02-06)",
		"### BY HOOK TYPE (all audiences)",
		"job_signal               1       0.80     100.0%",
		"funding                  1       0.25       0.0%",
		"**YC_FOUNDER**",
		"**SEED_STAGE**",
		"all: job_signal → recent_post → funding\n",
		"yc_founder: job_signal → recent_post\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected report to contain %q\n%s", want, text)
		}
	}

	if strings.Index(text, "all: ") > strings.Index(text, "seed_stage: ") {
		t.Error("aggregate ranking must come first in the research priority")
	}
}

func TestMarkdownAndHTML(t *testing.T) {
	today := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	r := Build(testAgg(today), today)

	markdown := r.Markdown()
	if !strings.Contains(markdown, "| job_signal | 1 | 0.80 | 100.0% |") {
		t.Errorf("expected markdown table row\n%s", markdown)
	}

	html, err := r.HTML()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("expected a rendered table\n%s", html)
	}
	if !strings.Contains(html, "<td>job_signal</td>") {
		t.Errorf("expected hook cell\n%s", html)
	}
}

func TestEmptyReport(t *testing.T) {
	today := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	r := Build(bucket.New(), today)

	if len(r.Overall.Rows) != 0 || len(r.ByAudience) != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}
	if strings.Contains(r.Text(), "all:") {
		t.Error("empty report must not list an aggregate priority")
	}
}
