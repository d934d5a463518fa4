// Package proxy delivers the bytes of a chosen option to the client: a
// streamed relay of a direct origin URL, a remuxed local file, or an image.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"flashdl/internal/config"
	"flashdl/internal/download"
	"flashdl/internal/httputil"
	"flashdl/internal/log"
	"flashdl/internal/media"
	"flashdl/internal/metrics"
)

// ImageHeaderTimeout bounds an image relay.
const ImageHeaderTimeout = 15 * time.Second

// mergedName is the remux output name inside each per-request directory.
const mergedName = "merged.mp4"

// ErrInvalidTarget means the fetch spec cannot be delivered as given.
var ErrInvalidTarget = errors.New("invalid delivery target")

// Proxy opens deliveries. It holds no per-request state.
type Proxy struct {
	client      *http.Client
	imageClient *http.Client
	merger      download.Merger
	caps        config.Capabilities
	tempDir     string
	referers    map[string]string
}

// New creates a Proxy. merger may be nil when caps.MergeAvailable is false.
func New(cfg *config.Config, caps config.Capabilities, merger download.Merger) *Proxy {
	return &Proxy{
		client:      httputil.NewStreamingClient(),
		imageClient: httputil.NewClient(ImageHeaderTimeout),
		merger:      merger,
		caps:        caps,
		tempDir:     cfg.TempDir,
		referers:    cfg.Referers,
	}
}

// Close releases idle upstream connections.
func (p *Proxy) Close() {
	p.client.CloseIdleConnections()
	p.imageClient.CloseIdleConnections()
}

// Open prepares a delivery. The returned Delivery must be closed.
func (p *Proxy) Open(ctx context.Context, spec media.FetchSpec) (*Delivery, error) {
	kind := deliveryKind(spec)
	d, err := p.open(ctx, kind, spec)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, media.ErrMergeUnavailable):
		outcome = "unavailable"
	case errors.Is(err, media.ErrRemuxFailed):
		outcome = "remux_failed"
	case errors.Is(err, ErrInvalidTarget):
		outcome = "invalid"
	default:
		outcome = "upstream_failed"
	}
	metrics.IncDelivery(kind, outcome)

	return d, err
}

func (p *Proxy) open(ctx context.Context, kind string, spec media.FetchSpec) (*Delivery, error) {
	switch kind {
	case kindImage:
		return p.openImage(ctx, spec)
	case kindMerge:
		return p.openMerge(ctx, spec)
	default:
		return p.openDirect(ctx, spec)
	}
}

func (p *Proxy) openDirect(ctx context.Context, spec media.FetchSpec) (*Delivery, error) {
	ext, err := normalizeExt(spec.Ext)
	if err != nil {
		return nil, err
	}
	if err := httputil.ValidateURL(spec.Target.URL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	resp, err := p.fetch(ctx, p.client, spec.Target.URL)
	if err != nil {
		return nil, err
	}

	name := media.CleanTitle(spec.Filename) + "." + ext
	return &Delivery{
		ContentType: "application/octet-stream",
		Disposition: disposition("attachment", name),
		Filename:    name,
		Length:      resp.ContentLength,
		kind:        kindDirect,
		body:        resp.Body,
	}, nil
}

func (p *Proxy) openImage(ctx context.Context, spec media.FetchSpec) (*Delivery, error) {
	if err := httputil.ValidateURL(spec.Target.URL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	resp, err := p.fetch(ctx, p.imageClient, spec.Target.URL)
	if err != nil {
		return nil, err
	}

	name := media.CleanTitle(spec.Filename) + ".jpg"
	return &Delivery{
		ContentType: "image/jpeg",
		Disposition: disposition("inline", name),
		Filename:    name,
		Length:      resp.ContentLength,
		kind:        kindImage,
		body:        resp.Body,
	}, nil
}

func (p *Proxy) openMerge(ctx context.Context, spec media.FetchSpec) (*Delivery, error) {
	if !p.caps.MergeAvailable || p.merger == nil {
		return nil, media.ErrMergeUnavailable
	}
	if err := httputil.ValidateURL(spec.Target.SourceURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	logger := log.WithComponentFromContext(ctx, "proxy")

	workDir := filepath.Join(p.tempDir, uuid.NewString())
	if err := os.MkdirAll(workDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating work dir: %v", media.ErrRemuxFailed, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn().Err(err).Str("dir", workDir).Msg("removing remux work dir")
		}
	}

	outPath, err := httputil.SafePath(workDir, mergedName)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", media.ErrRemuxFailed, err)
	}

	start := time.Now()
	err = p.merger.Merge(ctx, download.MergeRequest{
		SourceURL:   spec.Target.SourceURL,
		VideoFormat: spec.Target.VideoFormat,
		AudioFormat: spec.Target.AudioFormat,
		OutputPath:  outPath,
	})
	metrics.ObserveRemux(err == nil, time.Since(start))
	if err != nil {
		cleanup()
		if !errors.Is(err, media.ErrRemuxFailed) {
			err = fmt.Errorf("%w: %v", media.ErrRemuxFailed, err)
		}
		return nil, err
	}

	f, err := os.Open(outPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: opening output: %v", media.ErrRemuxFailed, err)
	}
	length := int64(-1)
	if info, err := f.Stat(); err == nil {
		length = info.Size()
	}

	name := media.CleanTitle(spec.Filename) + ".mp4"
	return &Delivery{
		ContentType: "video/mp4",
		Disposition: disposition("attachment", name),
		Filename:    name,
		Length:      length,
		kind:        kindMerge,
		body:        f,
		cleanup:     cleanup,
	}, nil
}

// fetch performs the upstream GET and requires a 2xx status.
func (p *Proxy) fetch(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	var headers map[string]string
	if ref := p.refererFor(rawURL); ref != "" {
		headers = map[string]string{"Referer": ref}
	}

	resp, err := httputil.Get(ctx, client, rawURL, httputil.GenericUserAgent, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrUpstreamFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d from %s", media.ErrUpstreamFetch, resp.StatusCode, httputil.Host(rawURL))
	}
	return resp, nil
}

// refererFor returns the configured Referer for the URL's host. The most
// specific matching domain wins.
func (p *Proxy) refererFor(rawURL string) string {
	host := httputil.Host(rawURL)
	var best, ref string
	for domain, r := range p.referers {
		if httputil.HostMatches(host, domain) && len(domain) > len(best) {
			best, ref = domain, r
		}
	}
	return ref
}

func normalizeExt(ext string) (string, error) {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return "mp4", nil
	}
	if err := httputil.ValidateExt(ext); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	return strings.ToLower(ext), nil
}

// disposition builds a Content-Disposition value; non-ASCII names are
// encoded per RFC 2231.
func disposition(kind, filename string) string {
	if v := mime.FormatMediaType(kind, map[string]string{"filename": filename}); v != "" {
		return v
	}
	return kind
}
