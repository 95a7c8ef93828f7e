package normalize

import "strings"

// Rule maps a lower-cased value to Result when it contains any of Keywords,
// or all of them when RequireAll is set.
type Rule[T ~string] struct {
	Keywords   []string
	RequireAll bool
	Result     T
}

// Matches reports whether s satisfies the rule.
func (r Rule[T]) Matches(s string) bool {
	if len(r.Keywords) == 0 {
		return false
	}
	for _, k := range r.Keywords {
		hit := strings.Contains(s, k)
		if r.RequireAll && !hit {
			return false
		}
		if !r.RequireAll && hit {
			return true
		}
	}
	return r.RequireAll
}

// Rules is an ordered guard list. The first matching rule wins.
type Rules[T ~string] []Rule[T]

// Match returns the result of the first rule matching s, or fallback.
func (rs Rules[T]) Match(s string, fallback T) T {
	for _, r := range rs {
		if r.Matches(s) {
			return r.Result
		}
	}
	return fallback
}

// ResultRules classify the legacy free-text result column.
var ResultRules = Rules[ResponseQuality]{
	{Keywords: []string{"meeting", "call_scheduled", "demo", "booked"}, Result: Meeting},
	{Keywords: []string{"replied", "accepted", "responded", "positive"}, Result: Positive},
	{Keywords: []string{"neutral"}, Result: Neutral},
	{Keywords: []string{"rejected", "not_interested", "blocked", "spam", "negative"}, Result: Negative},
}

// HookRules classify hook_type variations.
var HookRules = Rules[HookType]{
	{Keywords: []string{"job", "hiring"}, Result: JobSignal},
	{Keywords: []string{"fund"}, Result: Funding},
	{Keywords: []string{"mutual", "connection"}, Result: MutualConnection},
	{Keywords: []string{"post", "activity"}, Result: RecentPost},
	{Keywords: []string{"pain"}, Result: PainPoint},
}

// AudienceRules classify audience_segment variations.
var AudienceRules = Rules[AudienceSegment]{
	{Keywords: []string{"yc"}, Result: YCFounder},
	{Keywords: []string{"techstars"}, Result: Techstars},
	{Keywords: []string{"big", "tech"}, RequireAll: true, Result: BigTechAlumni},
	{Keywords: []string{"ukr"}, Result: Ukrainian},
	{Keywords: []string{"enterprise"}, Result: Enterprise},
	{Keywords: []string{"seed"}, Result: SeedStage},
	{Keywords: []string{"series"}, Result: SeriesA},
}
