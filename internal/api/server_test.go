package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdl/internal/config"
	"flashdl/internal/media"
	"flashdl/internal/proxy"
)

type fakeResolver struct {
	res *media.Resolution
	err error
	got string
}

func (f *fakeResolver) Resolve(_ context.Context, rawURL string) (*media.Resolution, error) {
	f.got = rawURL
	return f.res, f.err
}

type recordingDeliverer struct {
	specs []media.FetchSpec
	err   error
}

func (d *recordingDeliverer) Open(_ context.Context, spec media.FetchSpec) (*proxy.Delivery, error) {
	d.specs = append(d.specs, spec)
	if d.err == nil {
		return nil, media.ErrUpstreamFetch
	}
	return nil, d.err
}

func newTestServer(t *testing.T, resolver Resolver, deliverer Deliverer) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit = 0
	return New(cfg, config.Capabilities{MergeAvailable: true, CookieFile: "cookies.txt"}, resolver, deliverer).Handler()
}

func postExtract(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, ExtractResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp ExtractResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestExtractVideoMulti(t *testing.T) {
	resolver := &fakeResolver{res: &media.Resolution{
		Type:      media.TypeVideoMulti,
		Title:     "Launch Day",
		Thumbnail: "https://i.ytimg.com/vi/x/hq.jpg",
		SourceURL: "https://www.youtube.com/watch?v=x",
		Filename:  "Launch Day",
		Options: []media.Option{
			{Label: "HD 1080p (Best Quality + Audio)", Ext: "mp4", Height: 1080, RequiresMerge: true,
				Target: media.Target{VideoFormat: "303", AudioFormat: media.BestAudio, SourceURL: "https://www.youtube.com/watch?v=x"}},
			{Label: "Video 720p (Fast)", Ext: "mp4", Height: 720, Target: media.Target{URL: "https://rr.googlevideo.com/22?a=1&b=2"}},
		},
	}}
	h := newTestServer(t, resolver, &recordingDeliverer{})

	rec, resp := postExtract(t, h, `{"url":"https://www.youtube.com/watch?v=x"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://www.youtube.com/watch?v=x", resolver.got)

	assert.True(t, resp.Success)
	assert.Equal(t, media.TypeVideoMulti, resp.Type)
	assert.Equal(t, "https://www.youtube.com/watch?v=x", resp.OriginalURL)
	assert.Equal(t, "/proxy_image?url=https%3A%2F%2Fi.ytimg.com%2Fvi%2Fx%2Fhq.jpg", resp.ProxyThumbnail)
	require.Len(t, resp.Options, 2)

	merge, err := url.Parse(resp.Options[0].DownloadURL)
	require.NoError(t, err)
	assert.Equal(t, "/process_merge", merge.Path)
	assert.Equal(t, "303", merge.Query().Get("format_id"))
	assert.Equal(t, "https://www.youtube.com/watch?v=x", merge.Query().Get("url"))
	assert.Equal(t, "Launch Day", merge.Query().Get("title"))

	direct, err := url.Parse(resp.Options[1].DownloadURL)
	require.NoError(t, err)
	assert.Equal(t, "/proxy_download", direct.Path)
	assert.Equal(t, "https://rr.googlevideo.com/22?a=1&b=2", direct.Query().Get("url"))
	assert.Equal(t, "mp4", direct.Query().Get("ext"))
}

func TestExtractImageAndSingle(t *testing.T) {
	tests := []struct {
		name      string
		res       *media.Resolution
		wantProxy string
	}{
		{
			name: "image",
			res: &media.Resolution{Type: media.TypeImage, Title: "Instagram Photo", ImageURL: "https://cdn.example/p.jpg",
				Thumbnail: "https://cdn.example/p.jpg", Filename: "instagram_photo"},
			wantProxy: "/proxy_image?filename=instagram_photo&url=https%3A%2F%2Fcdn.example%2Fp.jpg",
		},
		{
			name: "single video",
			res: &media.Resolution{Type: media.TypeVideoSingle, Title: "Cat", Filename: "Cat",
				Options: []media.Option{{Label: "Video (Direct)", Ext: "mp4", Target: media.Target{URL: "https://v.redd.it/a/DASH_720.mp4"}}}},
			wantProxy: "/proxy_download?ext=mp4&title=Cat&url=https%3A%2F%2Fv.redd.it%2Fa%2FDASH_720.mp4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeResolver{res: tt.res}, &recordingDeliverer{})
			rec, resp := postExtract(t, h, `{"url":"https://example.com/x"}`)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.wantProxy, resp.ProxyURL)
		})
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"missing url", `{}`, nil, http.StatusBadRequest},
		{"blank url", `{"url":"  "}`, nil, http.StatusBadRequest},
		{"not json", `url=x`, nil, http.StatusBadRequest},
		{"no media", `{"url":"https://a.example"}`, fmt.Errorf("%w: no image link", media.ErrNoMediaFound), http.StatusNotFound},
		{"extraction", `{"url":"https://a.example"}`, fmt.Errorf("%w: ERROR: Unsupported URL", media.ErrExtractionFailed), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeResolver{err: tt.err}, &recordingDeliverer{})
			rec, resp := postExtract(t, h, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestOptionRoundTrip(t *testing.T) {
	options := []media.Option{
		{Ext: "mp4", Height: 1080, RequiresMerge: true,
			Target: media.Target{VideoFormat: "303", AudioFormat: media.BestAudio, SourceURL: "https://www.youtube.com/watch?v=x&t=1"}},
		{Ext: "mp4", Height: 720, Target: media.Target{URL: "https://rr.googlevideo.com/22?a=1&b=2"}},
		{Ext: "mp3", Target: media.Target{URL: "https://rr.googlevideo.com/140"}},
	}

	for _, opt := range options {
		t.Run(opt.Ext+fmt.Sprint(opt.Height), func(t *testing.T) {
			deliverer := &recordingDeliverer{err: media.ErrUpstreamFetch}
			h := newTestServer(t, &fakeResolver{}, deliverer)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, DownloadURL(opt, "Launch: Day!"), nil))
			assert.Equal(t, http.StatusBadGateway, rec.Code)

			require.Len(t, deliverer.specs, 1)
			want := media.FetchSpecFor(opt, "Launch: Day!")
			got := deliverer.specs[0]
			assert.Equal(t, want.Target, got.Target)
			assert.Equal(t, want.Ext, got.Ext)
			assert.Equal(t, want.Filename, got.Filename)
			assert.Equal(t, want.RequiresMerge(), got.RequiresMerge())
		})
	}
}

func TestDeliveryErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
	}{
		{"merge unavailable", "/process_merge?url=https%3A%2F%2Fy.example%2Fv&format_id=303", media.ErrMergeUnavailable, http.StatusServiceUnavailable},
		{"remux failed", "/process_merge?url=https%3A%2F%2Fy.example%2Fv&format_id=303", fmt.Errorf("%w: ffmpeg", media.ErrRemuxFailed), http.StatusInternalServerError},
		{"upstream", "/proxy_download?url=https%3A%2F%2Fcdn.example%2Fv", fmt.Errorf("%w: status 403", media.ErrUpstreamFetch), http.StatusBadGateway},
		{"invalid target", "/proxy_image?url=ftp%3A%2F%2Fx", fmt.Errorf("%w: scheme", proxy.ErrInvalidTarget), http.StatusBadRequest},
		{"unknown", "/proxy_image?url=https%3A%2F%2Fx.example%2Fa.jpg", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeResolver{}, &recordingDeliverer{err: tt.err})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		})
	}
}

func TestDeliveryMissingParams(t *testing.T) {
	deliverer := &recordingDeliverer{}
	h := newTestServer(t, &fakeResolver{}, deliverer)

	for _, path := range []string{"/proxy_download", "/proxy_image?filename=x", "/process_merge?url=https%3A%2F%2Fa.example", "/process_merge?format_id=303"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	assert.Empty(t, deliverer.specs)
}

func TestProxyDownloadEndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "0123456789")
	}))
	defer upstream.Close()

	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	p := proxy.New(cfg, config.Capabilities{}, nil)
	defer p.Close()

	h := newTestServer(t, &fakeResolver{}, p)
	path := DownloadURL(media.Option{Ext: "mp4", Target: media.Target{URL: upstream.URL + "/v.mp4"}}, "Launch Day")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.Equal(t, `attachment; filename="Launch Day.mp4"`, rec.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &fakeResolver{}, &recordingDeliverer{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.MergeAvailable)
	assert.True(t, health.Cookies)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeResolver{}, &recordingDeliverer{})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `flashdl_http_requests_total{code="200",method="GET",route="/healthz"}`)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantHeader string
	}{
		{"wildcard", []string{"*"}, "https://app.example", "https://app.example"},
		{"listed", []string{"https://app.example"}, "https://app.example", "https://app.example"},
		{"unlisted", []string{"https://app.example"}, "https://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))

			req := httptest.NewRequest(http.MethodOptions, "/extract", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.wantHeader, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit = 2
	h := New(cfg, config.Capabilities{}, &fakeResolver{err: media.ErrNoMediaFound}, &recordingDeliverer{}).Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewBufferString(`{"url":"https://a.example"}`))
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad ext", proxy.ErrInvalidTarget), http.StatusBadRequest},
		{media.ErrNoMediaFound, http.StatusNotFound},
		{media.ErrMergeUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: 403", media.ErrUpstreamFetch), http.StatusBadGateway},
		{media.ErrRemuxFailed, http.StatusInternalServerError},
		{media.ErrExtractionFailed, http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRecovererAfterResponseStarted(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial-bytes"))
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "partial-bytes", rec.Body.String())
}

func TestRequestIDPropagates(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
}
