package filter

import (
	"strings"
	"unicode"

	"github.com/amishk599/jobdigest/internal/model"
)

// TitleAndLocationFilter matches jobs whose title contains any of the title
// keywords and whose location contains any of the location keywords.
// Keywords match whole words, case-insensitively, so "hr" matches
// "HR Manager" but not "Chrome". Empty keyword lists are treated as "match all".
type TitleAndLocationFilter struct {
	titleKeywords [][]string
	locations     [][]string
}

// NewTitleAndLocationFilter returns a filter that requires both a title keyword
// match and a location keyword match. A keyword may be a multi-word phrase.
func NewTitleAndLocationFilter(titleKeywords []string, locations []string) *TitleAndLocationFilter {
	return &TitleAndLocationFilter{
		titleKeywords: phrases(titleKeywords),
		locations:     phrases(locations),
	}
}

// Match returns true if the job's title contains any title keyword and the
// job's location contains any location keyword. Empty keyword lists pass all.
func (f *TitleAndLocationFilter) Match(job model.Job) bool {
	if len(f.titleKeywords) > 0 && !containsAnyPhrase(words(job.Title), f.titleKeywords) {
		return false
	}
	if len(f.locations) > 0 && !containsAnyPhrase(words(job.Location), f.locations) {
		return false
	}
	return true
}

// PreferenceFilter drops jobs the candidate has ruled out: an excluded
// keyword in the title or description, an excluded location, or a known
// maximum salary under the floor. Jobs without salary data always pass the
// floor.
type PreferenceFilter struct {
	excludeKeywords  [][]string
	excludeLocations [][]string
	salaryFloor      float64
}

// NewPreferenceFilter builds a PreferenceFilter from the structured part of a
// candidate profile.
func NewPreferenceFilter(p model.CandidateProfile) *PreferenceFilter {
	return &PreferenceFilter{
		excludeKeywords:  phrases(p.ExcludeKeywords),
		excludeLocations: phrases(p.ExcludeLocations),
		salaryFloor:      p.SalaryFloor,
	}
}

// Match reports whether the job survives every exclusion.
func (f *PreferenceFilter) Match(job model.Job) bool {
	if len(f.excludeKeywords) > 0 {
		if containsAnyPhrase(words(job.Title), f.excludeKeywords) ||
			containsAnyPhrase(words(job.Description), f.excludeKeywords) {
			return false
		}
	}
	if len(f.excludeLocations) > 0 && containsAnyPhrase(words(job.Location), f.excludeLocations) {
		return false
	}
	if f.salaryFloor > 0 && job.SalaryMax != nil && *job.SalaryMax < f.salaryFloor {
		return false
	}
	return true
}

// Apply returns the jobs that every filter matches, preserving order.
func Apply(jobs []model.Job, filters ...model.JobFilter) []model.Job {
	kept := make([]model.Job, 0, len(jobs))
next:
	for _, j := range jobs {
		for _, f := range filters {
			if !f.Match(j) {
				continue next
			}
		}
		kept = append(kept, j)
	}
	return kept
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

func phrases(keywords []string) [][]string {
	out := make([][]string, 0, len(keywords))
	for _, kw := range keywords {
		if w := words(kw); len(w) > 0 {
			out = append(out, w)
		}
	}
	return out
}

func containsAnyPhrase(haystack []string, needles [][]string) bool {
	for _, n := range needles {
		if containsPhrase(haystack, n) {
			return true
		}
	}
	return false
}

func containsPhrase(haystack, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(haystack); i++ {
		match := true
		for j, w := range phrase {
			if haystack[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
