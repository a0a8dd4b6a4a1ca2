package feedbin

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
)

const DefaultBaseURL = "https://api.feedbin.com/v2"

// Feedbin caps the ids parameter of GET /entries.json at 100 ids.
const entryIDChunkSize = 100

// Client talks to the Feedbin v2 REST API using HTTP basic auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	userAgent  string
}

func NewClient(httpClient *http.Client, username, password, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		username:   username,
		password:   password,
		userAgent:  userAgent,
	}
}

// CheckAuth verifies the configured credentials against the API.
func (c *Client) CheckAuth(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.endpointURL("authentication", nil), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Subscriptions returns all feeds the account is subscribed to.
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	var subscriptions []Subscription
	if err := c.getJSON(ctx, c.endpointURL("subscriptions", nil), &subscriptions); err != nil {
		return nil, err
	}
	return subscriptions, nil
}

// Feed returns the metadata of a single feed.
func (c *Client) Feed(ctx context.Context, feedID int64) (*Feed, error) {
	var feed Feed
	if err := c.getJSON(ctx, c.endpointURL(fmt.Sprintf("feeds/%d", feedID), nil), &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// UnreadEntryIDs returns the ids of all currently unread entries.
func (c *Client) UnreadEntryIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := c.getJSON(ctx, c.endpointURL("unread_entries", nil), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// UnreadEntries materializes all unread entries. The unread id list is
// fetched first, then the entries themselves in chunks of 100 ids per
// request, following Link rel="next" pagination within each chunk.
func (c *Client) UnreadEntries(ctx context.Context) ([]Entry, error) {
	ids, err := c.UnreadEntryIDs(ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for start := 0; start < len(ids); start += entryIDChunkSize {
		end := start + entryIDChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		params := url.Values{}
		params.Set("ids", joinIDs(ids[start:end]))

		chunk, err := c.getEntryPages(ctx, c.endpointURL("entries", params))
		if err != nil {
			return nil, err
		}
		entries = append(entries, chunk...)
	}

	slog.Debug("Fetched unread entries", "ids", len(ids), "entries", len(entries))
	return entries, nil
}

// MarkRead marks a single entry as read by removing it from the
// unread set.
func (c *Client) MarkRead(ctx context.Context, entryID int64) error {
	body, err := json.Marshal(map[string][]int64{"unread_entries": {entryID}})
	if err != nil {
		return fmt.Errorf("encoding mark-read request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodDelete, c.endpointURL("unread_entries", nil), bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// getEntryPages fetches one entries URL and every page linked from it.
func (c *Client) getEntryPages(ctx context.Context, pageURL string) ([]Entry, error) {
	var entries []Entry
	for pageURL != "" {
		resp, err := c.do(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}

		var page []Entry
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decoding entries page: %w", decodeErr)
		}

		entries = append(entries, page...)
		pageURL = nextLink(resp.Header.Get("Link"))
	}
	return entries, nil
}

func (c *Client) getJSON(ctx context.Context, requestURL string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", requestURL, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, requestURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, requestURL, err)
	}

	if err := c.checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (c *Client) checkResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthError{}
	}
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Method:     resp.Request.Method,
		URL:        resp.Request.URL.String(),
	}

	var decoded struct {
		Message string   `json:"message"`
		Status  int      `json:"status"`
		Errors  []string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil {
		apiErr.Message = decoded.Message
		apiErr.Errors = decoded.Errors
		if decoded.Status != 0 {
			apiErr.StatusCode = decoded.Status
		}
	}
	return apiErr
}

func (c *Client) endpointURL(endpoint string, params url.Values) string {
	requestURL := fmt.Sprintf("%s/%s.json", c.baseURL, endpoint)
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}
	return requestURL
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// nextLink extracts the rel="next" URL from an RFC 5988 Link header,
// or returns "" when there is no next page.
func nextLink(header string) string {
	for _, link := range strings.Split(header, ",") {
		segments := strings.Split(link, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, param := range segments[1:] {
			if strings.EqualFold(strings.TrimSpace(param), `rel="next"`) {
				return target
			}
		}
	}
	return ""
}
