package convert

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sourceplane/jobwrecker/internal/jenkins"
	"github.com/sourceplane/jobwrecker/internal/render"
)

// Source is where server conversions read configurations from
type Source interface {
	ListJobs(ctx context.Context) ([]jenkins.Job, error)
	ListViews(ctx context.Context) ([]jenkins.View, error)
	GetJobConfig(ctx context.Context, fullName string) ([]byte, error)
	GetViewConfig(ctx context.Context, name string) ([]byte, error)
}

// Selection picks what to fetch from a server. With neither field set every
// job and every view is converted; naming a job or a view limits the run to
// that one configuration.
type Selection struct {
	Job  string
	View string
}

// allView is the built-in view every server has
const allView = "all"

// ConvertServer fetches and converts the selected configurations
func (c *Converter) ConvertServer(ctx context.Context, src Source, sel Selection) ([]render.Outcome, error) {
	jobs, views, err := c.resolve(ctx, src, sel)
	if err != nil {
		return nil, err
	}

	outcomes := make([]render.Outcome, len(jobs)+len(views))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, name := range jobs {
		g.Go(func() error {
			outcomes[i] = c.fetch(gctx, name, FromJob, src.GetJobConfig)
			return gctx.Err()
		})
	}
	for i, name := range views {
		g.Go(func() error {
			outcomes[len(jobs)+i] = c.fetch(gctx, name, FromView, src.GetViewConfig)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (c *Converter) fetch(ctx context.Context, name string, origin Origin, get func(context.Context, string) ([]byte, error)) render.Outcome {
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"name":   name,
		"origin": origin.String(),
	}).Info("Looking up configuration")
	data, err := get(ctx, name)
	if err != nil {
		return render.Outcome{Name: name, Err: err}
	}
	return c.Convert(ctx, data, name, origin)
}

func (c *Converter) resolve(ctx context.Context, src Source, sel Selection) (jobs, views []string, err error) {
	logger := c.logger.WithContext(ctx)

	switch {
	case sel.Job != "":
		jobs = []string{sel.Job}
	case sel.View == "":
		all, err := src.ListJobs(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, job := range all {
			if c.Ignored(job.Name) || c.Ignored(job.FullName) {
				logger.WithField("name", job.FullName).Info("Ignoring job as requested")
				continue
			}
			jobs = append(jobs, job.FullName)
		}
	}

	switch {
	case sel.View != "":
		views = []string{sel.View}
	case sel.Job == "":
		all, err := src.ListViews(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, view := range all {
			if c.Ignored(view.Name) {
				logger.WithField("name", view.Name).Info("Ignoring view as requested")
				continue
			}
			if view.Name != allView {
				views = append(views, view.Name)
			}
		}
	}

	if len(jobs) == 0 && len(views) == 0 {
		return nil, nil, fmt.Errorf("nothing to convert on the server")
	}
	return jobs, views, nil
}
