package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

type MockSiteService struct {
	mock.Mock
}

func (m *MockSiteService) CreateSite(ctx context.Context, name, prompt string) (*entities.Site, error) {
	args := m.Called(ctx, name, prompt)
	if s := args.Get(0); s != nil {
		return s.(*entities.Site), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSiteService) GetSite(id string) (*entities.Site, error) {
	args := m.Called(id)
	if s := args.Get(0); s != nil {
		return s.(*entities.Site), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSiteService) ListSites() []*entities.Site {
	return m.Called().Get(0).([]*entities.Site)
}

func (m *MockSiteService) DeleteSite(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockBuildService struct {
	mock.Mock
}

func (m *MockBuildService) Build(ctx context.Context, id string) (*entities.BuildResult, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*entities.BuildResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPreviewService struct {
	mock.Mock
}

func (m *MockPreviewService) Serve(ctx context.Context, id string, requestedPort int) (*entities.Site, error) {
	args := m.Called(ctx, id, requestedPort)
	if s := args.Get(0); s != nil {
		return s.(*entities.Site), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPreviewService) Stop(ctx context.Context, id string) (*entities.Site, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*entities.Site), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPreviewService) StopAll(ctx context.Context) {
	m.Called(ctx)
}

type serverFixture struct {
	server  *Server
	sites   *MockSiteService
	builder *MockBuildService
	preview *MockPreviewService
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	sites := new(MockSiteService)
	builder := new(MockBuildService)
	preview := new(MockPreviewService)
	connMgr := NewConnectionManager(&stubLister{}, time.Minute, nil)
	cfg := &entities.ServerConfig{Host: "localhost", Port: 8080, Environment: "development"}

	return &serverFixture{
		server:  NewServer(sites, builder, preview, connMgr, cfg, nil),
		sites:   sites,
		builder: builder,
		preview: preview,
	}
}

func (f *serverFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func readySite() *entities.Site {
	return &entities.Site{ID: "s1", Name: "demo", Path: "/sites/demo", Status: entities.StatusReady}
}

func TestHandleHealth(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleCreateSite(t *testing.T) {
	t.Run("creates a site", func(t *testing.T) {
		f := newServerFixture(t)
		f.sites.On("CreateSite", mock.Anything, "demo", "a coffee shop").Return(readySite(), nil)

		rec := f.do(http.MethodPost, "/api/sites", CreateSiteRequest{Name: "demo", Prompt: "a coffee shop"})
		require.Equal(t, http.StatusCreated, rec.Code)

		var site entities.Site
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &site))
		assert.Equal(t, "s1", site.ID)
	})

	t.Run("requires a prompt", func(t *testing.T) {
		f := newServerFixture(t)
		rec := f.do(http.MethodPost, "/api/sites", CreateSiteRequest{Name: "demo"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.sites.AssertNotCalled(t, "CreateSite", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("maps name conflicts to 409", func(t *testing.T) {
		f := newServerFixture(t)
		f.sites.On("CreateSite", mock.Anything, "demo", "x").Return(nil, entities.ErrNameConflict)

		rec := f.do(http.MethodPost, "/api/sites", CreateSiteRequest{Name: "demo", Prompt: "x"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("surfaces a failed creation with the site record", func(t *testing.T) {
		f := newServerFixture(t)
		failed := readySite()
		failed.Status = entities.StatusError
		f.sites.On("CreateSite", mock.Anything, "demo", "x").
			Return(failed, errors.New("generating site content: boom"))

		rec := f.do(http.MethodPost, "/api/sites", CreateSiteRequest{Name: "demo", Prompt: "x"})
		require.Equal(t, http.StatusBadGateway, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "create_failed", body["error"])
		assert.NotNil(t, body["site"])
	})
}

func TestHandleGetSite(t *testing.T) {
	t.Run("returns the site", func(t *testing.T) {
		f := newServerFixture(t)
		f.sites.On("GetSite", "s1").Return(readySite(), nil)

		rec := f.do(http.MethodGet, "/api/sites/s1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("maps unknown ids to 404", func(t *testing.T) {
		f := newServerFixture(t)
		f.sites.On("GetSite", "nope").Return(nil, entities.ErrSiteNotFound)

		rec := f.do(http.MethodGet, "/api/sites/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleListSites(t *testing.T) {
	f := newServerFixture(t)
	f.sites.On("ListSites").Return([]*entities.Site{readySite()})

	rec := f.do(http.MethodGet, "/api/sites", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sites []*entities.Site
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sites))
	require.Len(t, sites, 1)
}

func TestHandleDeleteSite(t *testing.T) {
	t.Run("deletes the site", func(t *testing.T) {
		f := newServerFixture(t)
		f.sites.On("DeleteSite", mock.Anything, "s1").Return(nil)

		rec := f.do(http.MethodDelete, "/api/sites/s1", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("maps unknown ids to 404", func(t *testing.T) {
		f := newServerFixture(t)
		f.sites.On("DeleteSite", mock.Anything, "nope").Return(entities.ErrSiteNotFound)

		rec := f.do(http.MethodDelete, "/api/sites/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleBuildSite(t *testing.T) {
	t.Run("returns the build result", func(t *testing.T) {
		f := newServerFixture(t)
		result := &entities.BuildResult{SiteID: "s1", Success: true, Stdout: "done"}
		f.builder.On("Build", mock.Anything, "s1").Return(result, nil)
		f.sites.On("GetSite", "s1").Return(readySite(), nil)

		rec := f.do(http.MethodPost, "/api/sites/s1/build", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body BuildResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Result.Success)
		assert.Equal(t, "done", body.Result.Stdout)
	})

	t.Run("tool failures come back as data with 502", func(t *testing.T) {
		f := newServerFixture(t)
		result := &entities.BuildResult{SiteID: "s1", Success: false, Stderr: "Liquid error on line 3"}
		f.builder.On("Build", mock.Anything, "s1").Return(result, nil)
		errored := readySite()
		errored.Status = entities.StatusError
		f.sites.On("GetSite", "s1").Return(errored, nil)

		rec := f.do(http.MethodPost, "/api/sites/s1/build", nil)
		require.Equal(t, http.StatusBadGateway, rec.Code)

		var body BuildResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Result.Success)
		assert.Contains(t, body.Result.Stderr, "Liquid error")
	})

	t.Run("maps an invalid transition to 409", func(t *testing.T) {
		f := newServerFixture(t)
		f.builder.On("Build", mock.Anything, "s1").Return(nil, &entities.TransitionError{
			SiteID: "s1", From: entities.StatusServing, To: entities.StatusBuilding,
		})

		rec := f.do(http.MethodPost, "/api/sites/s1/build", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandleServeSite(t *testing.T) {
	t.Run("starts the preview", func(t *testing.T) {
		f := newServerFixture(t)
		serving := readySite()
		serving.Status = entities.StatusServing
		serving.Port = 4000
		f.preview.On("Serve", mock.Anything, "s1", 0).Return(serving, nil)

		rec := f.do(http.MethodPost, "/api/sites/s1/serve", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var site entities.Site
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &site))
		assert.Equal(t, 4000, site.Port)
	})

	t.Run("passes the requested port through", func(t *testing.T) {
		f := newServerFixture(t)
		serving := readySite()
		serving.Status = entities.StatusServing
		serving.Port = 5000
		f.preview.On("Serve", mock.Anything, "s1", 5000).Return(serving, nil)

		rec := f.do(http.MethodPost, "/api/sites/s1/serve", ServeSiteRequest{Port: 5000})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("already serving reports the existing port", func(t *testing.T) {
		f := newServerFixture(t)
		f.preview.On("Serve", mock.Anything, "s1", 0).
			Return(nil, &entities.AlreadyServingError{SiteID: "s1", Port: 4000})

		rec := f.do(http.MethodPost, "/api/sites/s1/serve", nil)
		require.Equal(t, http.StatusConflict, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "already_serving", body["error"])
		assert.Equal(t, float64(4000), body["port"])
	})

	t.Run("maps out-of-range ports to 400", func(t *testing.T) {
		f := newServerFixture(t)
		f.preview.On("Serve", mock.Anything, "s1", 99).Return(nil, entities.ErrPortOutOfRange)

		rec := f.do(http.MethodPost, "/api/sites/s1/serve", ServeSiteRequest{Port: 99})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps start failures to 502", func(t *testing.T) {
		f := newServerFixture(t)
		f.preview.On("Serve", mock.Anything, "s1", 0).
			Return(nil, &entities.ServeError{SiteID: "s1", Port: 4000, Cause: errors.New("exited immediately")})

		rec := f.do(http.MethodPost, "/api/sites/s1/serve", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestHandleStopSite(t *testing.T) {
	t.Run("stops the preview", func(t *testing.T) {
		f := newServerFixture(t)
		f.preview.On("Stop", mock.Anything, "s1").Return(readySite(), nil)

		rec := f.do(http.MethodPost, "/api/sites/s1/stop", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("maps not serving to 409", func(t *testing.T) {
		f := newServerFixture(t)
		f.preview.On("Stop", mock.Anything, "s1").Return(nil, entities.ErrNotServing)

		rec := f.do(http.MethodPost, "/api/sites/s1/stop", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
