package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/amishk599/jobdigest/internal/httpx"
	"github.com/amishk599/jobdigest/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

// ashbyJob represents a single job in the Ashby API response.
type ashbyJob struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Location        string `json:"location"`
	IsRemote        bool   `json:"isRemote"`
	JobURL          string `json:"jobUrl"`
	DescriptionHTML string `json:"descriptionHtml"`
	PublishedAt     string `json:"publishedAt"`
	IsListed        bool   `json:"isListed"`
}

// ashbyResponse is the top-level Ashby job board API response.
type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// Ashby searches company boards on the Ashby public job board API, filtering
// postings locally like Greenhouse.
type Ashby struct {
	baseURL string
	boards  []Board
	client  *http.Client
}

// NewAshby creates a source for the given boards. An empty baseURL selects
// the public API.
func NewAshby(baseURL string, boards []Board, client *http.Client) *Ashby {
	if baseURL == "" {
		baseURL = ashbyBaseURL
	}
	return &Ashby{baseURL: baseURL, boards: boards, client: client}
}

func (s *Ashby) Name() string { return "ashby" }

// Search fetches every board and returns listed postings matching q.
func (s *Ashby) Search(ctx context.Context, q model.Query) ([]model.RawPosting, error) {
	match := queryFilter(q)
	var out []model.RawPosting
	for _, b := range s.boards {
		jobs, err := s.fetchBoard(ctx, b)
		if err != nil {
			return nil, err
		}
		for _, aj := range jobs {
			if !aj.IsListed {
				continue
			}
			location := aj.Location
			if aj.IsRemote && location == "" {
				location = "Remote"
			}
			p := model.RawPosting{
				Provider:    s.Name(),
				ProviderID:  aj.ID,
				Title:       aj.Title,
				Company:     b.Company,
				Location:    location,
				Description: aj.DescriptionHTML,
				URL:         aj.JobURL,
				PostedAt:    parseTime(aj.PublishedAt),
			}
			if !match.Match(model.Job{Title: p.Title, Location: p.Location}) {
				continue
			}
			out = append(out, p)
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *Ashby) fetchBoard(ctx context.Context, b Board) ([]ashbyJob, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, b.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", b.Token, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", b.Token, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpx.StatusError(resp, "ashby fetch for "+b.Token)
	}

	var ashbyResp ashbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&ashbyResp); err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", b.Token, err)
	}
	return ashbyResp.Jobs, nil
}
