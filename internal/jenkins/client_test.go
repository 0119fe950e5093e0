package jenkins

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const folderClass = "com.cloudbees.hudson.plugins.folder.Folder"

func newTestClient(t *testing.T, handler http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), opts)
	require.NoError(t, err)
	return c
}

func fakeServer() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/json", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("tree") == "views[name,url]":
			_, _ = w.Write([]byte(`{"views":[{"name":"all"},{"name":"Team"}]}`))
		default:
			_, _ = w.Write([]byte(`{"jobs":[{"_class":"hudson.model.FreeStyleProject","name":"app"},{"_class":"` + folderClass + `","name":"team"}]}`))
		}
	})
	mux.HandleFunc("/job/team/api/json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jobs":[{"_class":"org.jenkinsci.plugins.workflow.job.WorkflowJob","name":"deploy","fullName":"team/deploy"}]}`))
	})
	mux.HandleFunc("/job/team/job/deploy/config.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<flow-definition/>`))
	})
	mux.HandleFunc("/view/Team/config.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<hudson.model.ListView/>`))
	})
	return mux
}

func TestJobPath(t *testing.T) {
	assert.Equal(t, "job/app/", JobPath("app"))
	assert.Equal(t, "job/team/job/my%20app/", JobPath("team/my app"))
}

func TestListJobsDescendsIntoFolders(t *testing.T) {
	c := newTestClient(t, fakeServer(), Options{})

	jobs, err := c.ListJobs(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.FullName)
	}
	assert.Equal(t, []string{"app", "team", "team/deploy"}, names)
	assert.True(t, jobs[1].IsFolder())
}

func TestGetConfigs(t *testing.T) {
	c := newTestClient(t, fakeServer(), Options{})

	job, err := c.GetJobConfig(context.Background(), "team/deploy")
	require.NoError(t, err)
	assert.Equal(t, "<flow-definition/>", string(job))

	view, err := c.GetViewConfig(context.Background(), "Team")
	require.NoError(t, err)
	assert.Equal(t, "<hudson.model.ListView/>", string(view))

	views, err := c.ListViews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []View{{Name: "all"}, {Name: "Team"}}, views)
}

func TestBasicAuth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "robot" || pass != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`<project/>`))
	}), Options{Username: "robot", Password: "s3cret"})

	data, err := c.GetJobConfig(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, "<project/>", string(data))
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}), Options{MaxRetries: 3})

	_, err := c.GetJobConfig(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, NotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`<project/>`))
	}), Options{MaxRetries: 3})

	data, err := c.GetJobConfig(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, "<project/>", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRequestsAreRateLimited(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte(`<project/>`))
	}), Options{RequestsPerSecond: 20})

	for i := 0; i < 4; i++ {
		_, err := c.GetJobConfig(context.Background(), "app")
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, times, 4)
	// One token up front, then one every 50ms
	assert.GreaterOrEqual(t, times[3].Sub(times[0]), 140*time.Millisecond)
}

func TestUnlimitedByDefault(t *testing.T) {
	c := newTestClient(t, fakeServer(), Options{})
	assert.Equal(t, rate.Inf, c.limiter.Limit())

	c = newTestClient(t, fakeServer(), Options{RequestsPerSecond: 5})
	assert.Equal(t, rate.Limit(5), c.limiter.Limit())
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, fakeServer(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListJobs(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientRejectsBadScheme(t *testing.T) {
	_, err := NewClient("ftp://jenkins", ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), Options{})
	assert.Error(t, err)
}
