package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amishk599/jobdigest/internal/model"
)

func job(title, location string) model.Job {
	return model.Job{Title: title, Location: location}
}

func TestTitleAndLocationFilter_Match(t *testing.T) {
	tests := []struct {
		name          string
		titleKeywords []string
		locations     []string
		job           model.Job
		wantMatch     bool
	}{
		{
			name:          "matches both title and location",
			titleKeywords: []string{"people operations", "talent"},
			locations:     []string{"Milan", "Remote"},
			job:           job("People Operations Specialist", "Remote - EU"),
			wantMatch:     true,
		},
		{
			name:          "title match but location miss",
			titleKeywords: []string{"recruiter"},
			locations:     []string{"Milan", "Italy"},
			job:           job("Technical Recruiter", "London, UK"),
			wantMatch:     false,
		},
		{
			name:          "case insensitive matching",
			titleKeywords: []string{"HR"},
			locations:     []string{"italy"},
			job:           job("hr generalist", "Milan, Italy"),
			wantMatch:     true,
		},
		{
			name:          "keyword must be a whole word",
			titleKeywords: []string{"hr"},
			locations:     nil,
			job:           job("Chrome Engineer", "Milan"),
			wantMatch:     false,
		},
		{
			name:          "no keywords match",
			titleKeywords: []string{"marketing", "content"},
			locations:     []string{"Remote"},
			job:           job("Backend Engineer", "Remote"),
			wantMatch:     false,
		},
		{
			name:          "empty keyword lists pass all",
			titleKeywords: []string{},
			locations:     []string{},
			job:           job("Any Role", "Anywhere"),
			wantMatch:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewTitleAndLocationFilter(tt.titleKeywords, tt.locations)
			assert.Equal(t, tt.wantMatch, f.Match(tt.job))
		})
	}
}

func TestPreferenceFilter_Match(t *testing.T) {
	low, high := 30000.0, 60000.0
	profile := model.CandidateProfile{
		ExcludeKeywords:  []string{"internship", "night shift"},
		ExcludeLocations: []string{"Rome"},
		SalaryFloor:      40000,
	}
	f := NewPreferenceFilter(profile)

	tests := []struct {
		name string
		job  model.Job
		want bool
	}{
		{"plain job passes", model.Job{Title: "HR Generalist", Location: "Milan"}, true},
		{"excluded keyword in title", model.Job{Title: "HR Internship", Location: "Milan"}, false},
		{"excluded phrase in description", model.Job{Title: "Recruiter", Description: "Includes night shift rotations."}, false},
		{"excluded location", model.Job{Title: "Recruiter", Location: "Rome, Italy"}, false},
		{"salary under floor", model.Job{Title: "Recruiter", SalaryMax: &low}, false},
		{"salary over floor", model.Job{Title: "Recruiter", SalaryMax: &high}, true},
		{"unknown salary passes", model.Job{Title: "Recruiter"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Match(tt.job))
		})
	}
}

func TestPreferenceFilter_EmptyProfilePassesAll(t *testing.T) {
	f := NewPreferenceFilter(model.CandidateProfile{})
	assert.True(t, f.Match(model.Job{Title: "Anything", Location: "Anywhere"}))
}

func TestApply_PreservesOrder(t *testing.T) {
	jobs := []model.Job{
		job("HR Manager", "Milan"),
		job("HR Intern", "Milan"),
		job("Talent Partner", "Rome"),
		job("People Partner", "Milan"),
	}
	got := Apply(jobs,
		NewPreferenceFilter(model.CandidateProfile{ExcludeKeywords: []string{"intern"}}),
		NewTitleAndLocationFilter(nil, []string{"milan"}),
	)

	titles := make([]string, len(got))
	for i, j := range got {
		titles[i] = j.Title
	}
	assert.Equal(t, []string{"HR Manager", "People Partner"}, titles)
}
