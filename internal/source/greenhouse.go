package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobdigest/internal/filter"
	"github.com/amishk599/jobdigest/internal/httpx"
	"github.com/amishk599/jobdigest/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	Content        string             `json:"content"`
	FirstPublished string             `json:"first_published"`
	UpdatedAt      string             `json:"updated_at"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// Board identifies one company job board on an ATS.
type Board struct {
	Token   string // board slug, e.g. "acme"
	Company string // display name
}

// Greenhouse searches company boards on the Greenhouse public boards API.
// The API has no search endpoint, so each query downloads the boards and
// keeps the postings whose title and location match the query words.
type Greenhouse struct {
	baseURL string
	boards  []Board
	client  *http.Client
}

// NewGreenhouse creates a source for the given boards. An empty baseURL
// selects the public API.
func NewGreenhouse(baseURL string, boards []Board, client *http.Client) *Greenhouse {
	if baseURL == "" {
		baseURL = greenhouseBaseURL
	}
	return &Greenhouse{baseURL: baseURL, boards: boards, client: client}
}

func (s *Greenhouse) Name() string { return "greenhouse" }

// Search fetches every board and returns the matching postings, board by
// board, capped at q.Limit. A failing board fails the query.
func (s *Greenhouse) Search(ctx context.Context, q model.Query) ([]model.RawPosting, error) {
	match := queryFilter(q)
	var out []model.RawPosting
	for _, b := range s.boards {
		jobs, err := s.fetchBoard(ctx, b)
		if err != nil {
			return nil, err
		}
		for _, gj := range jobs {
			p := model.RawPosting{
				Provider:    s.Name(),
				ProviderID:  fmt.Sprintf("%d", gj.ID),
				Title:       gj.Title,
				Company:     b.Company,
				Location:    gj.Location.Name,
				Description: gj.Content,
				URL:         gj.AbsoluteURL,
			}
			if !match.Match(model.Job{Title: p.Title, Location: p.Location}) {
				continue
			}
			p.PostedAt = parseTime(gj.FirstPublished)
			if p.PostedAt == nil {
				p.PostedAt = parseTime(gj.UpdatedAt)
			}
			out = append(out, p)
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *Greenhouse) fetchBoard(ctx context.Context, b Board) ([]greenhouseJob, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", s.baseURL, b.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", b.Token, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", b.Token, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpx.StatusError(resp, "greenhouse fetch for "+b.Token)
	}

	var ghResp greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", b.Token, err)
	}
	return ghResp.Jobs, nil
}

// queryFilter matches a posting against the query's words: any keyword in
// the title and any location word in the location.
func queryFilter(q model.Query) *filter.TitleAndLocationFilter {
	return filter.NewTitleAndLocationFilter(strings.Fields(q.Keywords), strings.Fields(q.Location))
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
