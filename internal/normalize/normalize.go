// Package normalize maps free-text activity fields onto closed enumerations.
package normalize

import (
	"strings"
	"time"
)

// ResponseQuality is the outcome of a single outreach activity.
type ResponseQuality string

const (
	Meeting  ResponseQuality = "meeting"
	Positive ResponseQuality = "positive"
	Neutral  ResponseQuality = "neutral"
	NoReply  ResponseQuality = "none"
	Negative ResponseQuality = "negative"
)

// ResponseQualities lists every ResponseQuality, best outcome first.
var ResponseQualities = []ResponseQuality{Meeting, Positive, Neutral, NoReply, Negative}

// HookType is the outreach angle used to open contact.
type HookType string

const (
	Funding          HookType = "funding"
	JobSignal        HookType = "job_signal"
	MutualConnection HookType = "mutual_connection"
	RecentPost       HookType = "recent_post"
	PainPoint        HookType = "pain_point"
	OtherHook        HookType = "other"
)

// HookTypes lists every HookType.
var HookTypes = []HookType{Funding, JobSignal, MutualConnection, RecentPost, PainPoint, OtherHook}

// AudienceSegment groups prospects by firm or founder type.
type AudienceSegment string

const (
	YCFounder     AudienceSegment = "yc_founder"
	Techstars     AudienceSegment = "techstars"
	BigTechAlumni AudienceSegment = "big_tech_alumni"
	Ukrainian     AudienceSegment = "ukrainian"
	Enterprise    AudienceSegment = "enterprise"
	SeedStage     AudienceSegment = "seed_stage"
	SeriesA       AudienceSegment = "series_a"
	OtherAudience AudienceSegment = "other"

	// AllAudiences is the synthetic aggregate segment. Normalization never
	// produces it.
	AllAudiences AudienceSegment = "all"
)

// AudienceSegments lists the real (non-aggregate) segments.
var AudienceSegments = []AudienceSegment{
	YCFounder, Techstars, BigTechAlumni, Ukrainian, Enterprise, SeedStage, SeriesA, OtherAudience,
}

// Record is a raw activity row: column name to cell value. Missing columns
// read as "".
type Record map[string]string

// Activity is a normalized activity record.
type Activity struct {
	Hook     HookType
	Audience AudienceSegment
	Response ResponseQuality
	Date     *time.Time
}

// Normalize maps every field of r onto its enumeration. It never fails.
func Normalize(r Record) Activity {
	return Activity{
		Hook:     HookTypeOf(r),
		Audience: AudienceOf(r),
		Response: ResponseQualityOf(r),
		Date:     DateOf(r),
	}
}

func field(r Record, name string) string {
	return strings.ToLower(strings.TrimSpace(r[name]))
}

// ResponseQualityOf normalizes response_quality, falling back to the legacy
// result column.
func ResponseQualityOf(r Record) ResponseQuality {
	rq := ResponseQuality(field(r, "response_quality"))
	for _, q := range ResponseQualities {
		if rq == q {
			return q
		}
	}
	return ResultRules.Match(field(r, "result"), NoReply)
}

// HookTypeOf normalizes hook_type.
func HookTypeOf(r Record) HookType {
	ht := field(r, "hook_type")
	hook := HookRules.Match(ht, "")
	if hook != "" {
		return hook
	}
	for _, h := range HookTypes {
		if HookType(ht) == h {
			return h
		}
	}
	return OtherHook
}

// AudienceOf normalizes audience_segment. The aggregate segment "all" is
// not accepted as input and maps to other.
func AudienceOf(r Record) AudienceSegment {
	aud := field(r, "audience_segment")
	seg := AudienceRules.Match(aud, "")
	if seg != "" {
		return seg
	}
	for _, a := range AudienceSegments {
		if AudienceSegment(aud) == a {
			return a
		}
	}
	return OtherAudience
}

// dateColumns are tried in order; the first that parses wins.
var dateColumns = []string{"date", "ts_iso"}

// dateLayouts accept zero-padded dates first, then unpadded ones like 2026-2-6.
var dateLayouts = []string{time.DateOnly, "2006-1-2"}

// DateOf returns the activity date, or nil when no date column parses.
func DateOf(r Record) *time.Time {
	for _, col := range dateColumns {
		v := strings.TrimSpace(r[col])
		if v == "" {
			continue
		}
		if len(v) > 10 {
			v = v[:10]
		}
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, v); err == nil {
				return &d
			}
		}
	}
	return nil
}
