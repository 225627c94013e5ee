package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
)

const (
	perPage  = 100
	maxPages = 50
)

// Client implements ports.WorkItems against one GitLab project using the
// REST API v4. Issue ids are project-scoped IIDs; user ids are usernames.
type Client struct {
	baseURL   string
	token     string
	projectID string
	http      *http.Client
	log       *slog.Logger

	mu          sync.Mutex
	projectName string
}

func NewClient(baseURL, token, projectID string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://gitlab.com"
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		projectID: projectID,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// GetWorkItem fetches one issue and the project's display name.
// GitLab v4: GET /api/v4/projects/:id/issues/:iid
func (c *Client) GetWorkItem(ctx context.Context, id int64) (domain.WorkItem, error) {
	var raw rawIssue
	if _, err := c.do(ctx, http.MethodGet, c.issuePath(id), nil, nil, http.StatusOK, &raw); err != nil {
		return domain.WorkItem{}, err
	}
	name, err := c.project(ctx)
	if err != nil {
		// The title alone is still useful.
		c.log.Debug("gitlab project name unavailable", slog.String("error", err.Error()))
	}
	return raw.toDomain(name), nil
}

// ListAssigned returns the opened issues assigned to the username userID,
// following X-Next-Page up to maxPages pages.
// GitLab v4: GET /api/v4/projects/:id/issues?assignee_username=...&state=opened
func (c *Client) ListAssigned(ctx context.Context, userID string) ([]domain.WorkItem, error) {
	q := url.Values{}
	q.Set("assignee_username", userID)
	q.Set("state", "opened")
	q.Set("per_page", strconv.Itoa(perPage))

	var raw []rawIssue
	page := "1"
	for n := 0; page != "" && n < maxPages; n++ {
		q.Set("page", page)
		var batch []rawIssue
		h, err := c.do(ctx, http.MethodGet, c.projectPath()+"/issues", q, nil, http.StatusOK, &batch)
		if err != nil {
			return nil, err
		}
		raw = append(raw, batch...)
		page = strings.TrimSpace(h.Get("X-Next-Page"))
	}
	if page != "" {
		c.log.Warn("gitlab assigned issues truncated", slog.String("user", userID), slog.Int("pages", maxPages))
	}
	name, err := c.project(ctx)
	if err != nil {
		c.log.Debug("gitlab project name unavailable", slog.String("error", err.Error()))
	}
	out := make([]domain.WorkItem, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toDomain(name))
	}
	return out, nil
}

// AppendComment adds a note to an issue.
// GitLab v4: POST /api/v4/projects/:id/issues/:iid/notes
func (c *Client) AppendComment(ctx context.Context, id int64, text string) error {
	body, err := json.Marshal(map[string]string{"body": text})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, c.issuePath(id)+"/notes", nil, body, http.StatusCreated, nil)
	return err
}

// project returns the project's name, cached after the first success. The
// lock is not held over the request; concurrent first callers may each fetch.
func (c *Client) project(ctx context.Context) (string, error) {
	c.mu.Lock()
	name := c.projectName
	c.mu.Unlock()
	if name != "" {
		return name, nil
	}
	var raw rawProject
	if _, err := c.do(ctx, http.MethodGet, c.projectPath(), nil, nil, http.StatusOK, &raw); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.projectName = raw.Name
	c.mu.Unlock()
	return raw.Name, nil
}

func (c *Client) projectPath() string {
	return "/api/v4/projects/" + url.PathEscape(c.projectID)
}

func (c *Client) issuePath(id int64) string {
	return c.projectPath() + "/issues/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, want int, out any) (http.Header, error) {
	if c.token == "" || c.projectID == "" {
		return nil, domain.ErrNotConfigured
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if q != nil {
		u.RawQuery = q.Encode()
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("gitlab: %s %s: %w", method, path, domain.ErrNotFound)
	}
	if resp.StatusCode != want {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gitlab: unexpected status %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("gitlab: decode %s: %w", path, err)
	}
	return resp.Header, nil
}

// rawIssue mirrors the JSON from GitLab v4.
type rawIssue struct {
	ID     int64    `json:"id"`
	IID    int64    `json:"iid"`
	Title  string   `json:"title"`
	State  string   `json:"state"`
	Labels []string `json:"labels"`
}

func (r rawIssue) toDomain(project string) domain.WorkItem {
	status := r.State
	if status == "opened" {
		for _, l := range r.Labels {
			if strings.EqualFold(l, "in progress") || strings.EqualFold(l, "doing") {
				status = "in_progress"
				break
			}
		}
	}
	return domain.WorkItem{ID: r.IID, Title: r.Title, ProjectName: project, Status: status}
}

type rawProject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Disabled is used when no GitLab project is configured. Every call reports
// domain.ErrNotConfigured so callers fall back to their defaults.
type Disabled struct{}

func (Disabled) GetWorkItem(context.Context, int64) (domain.WorkItem, error) {
	return domain.WorkItem{}, domain.ErrNotConfigured
}

func (Disabled) ListAssigned(context.Context, string) ([]domain.WorkItem, error) {
	return nil, domain.ErrNotConfigured
}

func (Disabled) AppendComment(context.Context, int64, string) error {
	return domain.ErrNotConfigured
}
