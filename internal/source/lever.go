package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobdigest/internal/httpx"
	"github.com/amishk599/jobdigest/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

type leverCategories struct {
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single posting in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	Description      string          `json:"description"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"` // unix millis
	WorkplaceType    string          `json:"workplaceType"`
	HostedURL        string          `json:"hostedUrl"`
}

// Lever searches company boards on the Lever public postings API, matching
// postings to queries the same way Greenhouse does.
type Lever struct {
	baseURL string
	boards  []Board
	client  *http.Client
}

// NewLever creates a source for the given boards. An empty baseURL selects
// the public API.
func NewLever(baseURL string, boards []Board, client *http.Client) *Lever {
	if baseURL == "" {
		baseURL = leverBaseURL
	}
	return &Lever{baseURL: baseURL, boards: boards, client: client}
}

func (s *Lever) Name() string { return "lever" }

// Search fetches every board and returns the matching postings, capped at
// q.Limit. A failing board fails the query.
func (s *Lever) Search(ctx context.Context, q model.Query) ([]model.RawPosting, error) {
	match := queryFilter(q)
	var out []model.RawPosting
	for _, b := range s.boards {
		jobs, err := s.fetchBoard(ctx, b)
		if err != nil {
			return nil, err
		}
		for _, lj := range jobs {
			// Prefer allLocations when present.
			location := lj.Categories.Location
			if len(lj.Categories.AllLocations) > 0 {
				location = strings.Join(lj.Categories.AllLocations, ", ")
			}
			if location == "" && strings.EqualFold(lj.WorkplaceType, "remote") {
				location = "Remote"
			}
			if !match.Match(model.Job{Title: lj.Text, Location: location}) {
				continue
			}

			desc := lj.Description
			if desc == "" {
				desc = lj.DescriptionPlain
			}
			var postedAt *time.Time
			if lj.CreatedAt > 0 {
				t := time.UnixMilli(lj.CreatedAt).UTC()
				postedAt = &t
			}
			out = append(out, model.RawPosting{
				Provider:    s.Name(),
				ProviderID:  lj.ID,
				Title:       lj.Text,
				Company:     b.Company,
				Location:    location,
				Description: desc,
				PostedAt:    postedAt,
				URL:         lj.HostedURL,
			})
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *Lever) fetchBoard(ctx context.Context, b Board) ([]leverJob, error) {
	url := fmt.Sprintf("%s/%s?mode=json", s.baseURL, b.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", b.Token, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", b.Token, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpx.StatusError(resp, "lever fetch for "+b.Token)
	}

	var jobs []leverJob
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", b.Token, err)
	}
	return jobs, nil
}
