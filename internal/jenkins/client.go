// Package jenkins fetches job and view configurations from a Jenkins server.
package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Job is an entry of the server's job tree
type Job struct {
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	URL      string `json:"url"`
	Class    string `json:"_class"`
}

// IsFolder reports whether the job contains other jobs
func (j Job) IsFolder() bool {
	return strings.HasSuffix(j.Class, "Folder")
}

// View is an entry of the server's view list
type View struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// NotFound reports whether err is a 404 from the server
func NotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Options configures a Client
type Options struct {
	Username string
	Password string
	Timeout  time.Duration
	// RequestsPerSecond limits the request rate; zero means unlimited.
	RequestsPerSecond float64
	// MaxRetries bounds retries of failed requests on top of the first try.
	MaxRetries uint64
	HTTPClient *http.Client
}

// Client is a read-only Jenkins API client. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	logger  ectologger.Logger
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, logger ectologger.Logger, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server URL scheme %q", base.Scheme)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		base:    base,
		opts:    opts,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// JobPath returns the URL path of a job. Folder-qualified names ("a/b")
// become nested /job/ segments.
func JobPath(fullName string) string {
	var sb strings.Builder
	for _, part := range strings.Split(strings.Trim(fullName, "/"), "/") {
		sb.WriteString("job/")
		sb.WriteString(url.PathEscape(part))
		sb.WriteString("/")
	}
	return sb.String()
}

// GetJobConfig returns the config.xml of a job
func (c *Client) GetJobConfig(ctx context.Context, fullName string) ([]byte, error) {
	data, err := c.get(ctx, JobPath(fullName)+"config.xml")
	if err != nil {
		return nil, fmt.Errorf("failed to get job config %s: %w", fullName, err)
	}
	return data, nil
}

// GetViewConfig returns the config.xml of a view
func (c *Client) GetViewConfig(ctx context.Context, name string) ([]byte, error) {
	data, err := c.get(ctx, "view/"+url.PathEscape(name)+"/config.xml")
	if err != nil {
		return nil, fmt.Errorf("failed to get view config %s: %w", name, err)
	}
	return data, nil
}

// ListJobs returns every job on the server, descending into folders. Folders
// are listed before their contents.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := c.listJobs(ctx, "", "", &jobs); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (c *Client) listJobs(ctx context.Context, path, prefix string, jobs *[]Job) error {
	var resp struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.getJSON(ctx, path+"api/json?tree=jobs[name,fullName,url]", &resp); err != nil {
		return err
	}

	for _, job := range resp.Jobs {
		if job.FullName == "" {
			job.FullName = prefix + job.Name
		}
		*jobs = append(*jobs, job)
		if job.IsFolder() {
			if err := c.listJobs(ctx, JobPath(job.FullName), job.FullName+"/", jobs); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListViews returns the views defined at the top level of the server
func (c *Client) ListViews(ctx context.Context) ([]View, error) {
	var resp struct {
		Views []View `json:"views"`
	}
	if err := c.getJSON(ctx, "api/json?tree=views[name,url]", &resp); err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	return resp.Views, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	data, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// get fetches path relative to the server URL. Transport errors and 5xx
// responses are retried with exponential backoff; anything else is final.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	target := c.base.ResolveReference(ref).String()

	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.opts.Username != "" {
			req.SetBasicAuth(c.opts.Username, c.opts.Password)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, resp.Body)
			statusErr := &StatusError{URL: target, Code: resp.StatusCode}
			if resp.StatusCode >= 500 {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	notify := func(err error, wait time.Duration) {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"url":     target,
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("Request failed, retrying")
	}

	err = backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.opts.MaxRetries), ctx), notify)
	if err != nil {
		return nil, err
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"url":   target,
		"bytes": len(body),
	}).Debug("Fetched from server")
	return body, nil
}
