package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"flashdl/internal/log"
	"flashdl/internal/media"
)

// maxExtractBody caps the /extract request body.
const maxExtractBody = 64 * 1024

type extractRequest struct {
	URL string `json:"url"`
}

// ExtractResponse is the /extract body, success or failure.
type ExtractResponse struct {
	Success        bool             `json:"success"`
	Type           media.ResultType `json:"type,omitempty"`
	Title          string           `json:"title,omitempty"`
	Thumbnail      string           `json:"thumbnail,omitempty"`
	ProxyThumbnail string           `json:"proxy_thumbnail,omitempty"`
	Options        []OptionResponse `json:"options,omitempty"`
	OriginalURL    string           `json:"original_url,omitempty"`
	ProxyURL       string           `json:"proxy_url,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// OptionResponse is an option plus the route that delivers it.
type OptionResponse struct {
	media.Option
	DownloadURL string `json:"download_url"`
}

type healthResponse struct {
	Status         string `json:"status"`
	MergeAvailable bool   `json:"merge_available"`
	Cookies        bool   `json:"cookies"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		MergeAvailable: s.caps.MergeAvailable,
		Cookies:        s.caps.CookieFile != "",
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExtractBody))
	if err := dec.Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, ExtractResponse{Error: "No URL provided"})
		return
	}

	res, err := s.resolver.Resolve(r.Context(), req.URL)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, media.ErrNoMediaFound) {
			msg = "Could not find media: " + msg
		}
		writeJSON(w, statusFor(err), ExtractResponse{Error: msg})
		return
	}

	writeJSON(w, http.StatusOK, RenderResolution(res))
}

// RenderResolution renders a resolution with ready-made delivery links.
func RenderResolution(res *media.Resolution) ExtractResponse {
	out := ExtractResponse{
		Success:     true,
		Type:        res.Type,
		Title:       res.Title,
		Thumbnail:   res.Thumbnail,
		OriginalURL: res.SourceURL,
	}
	if res.Thumbnail != "" {
		out.ProxyThumbnail = ImageURL(res.Thumbnail, "")
	}

	switch res.Type {
	case media.TypeImage:
		out.ProxyURL = ImageURL(res.ImageURL, res.Filename)
	default:
		out.Options = make([]OptionResponse, 0, len(res.Options))
		for _, opt := range res.Options {
			out.Options = append(out.Options, OptionResponse{
				Option:      opt,
				DownloadURL: DownloadURL(opt, res.Filename),
			})
		}
		if res.Type == media.TypeVideoSingle && len(out.Options) > 0 {
			out.ProxyURL = out.Options[0].DownloadURL
		}
	}
	return out
}

func (s *Server) handleProxyDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := q.Get("url")
	if target == "" {
		http.Error(w, "No URL", http.StatusBadRequest)
		return
	}

	s.deliver(w, r, media.FetchSpec{
		Kind:     media.Video,
		Target:   media.Target{URL: target},
		Ext:      valueOr(q.Get("ext"), "mp4"),
		Filename: valueOr(q.Get("title"), "download"),
	})
}

func (s *Server) handleProxyImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := q.Get("url")
	if target == "" {
		http.Error(w, "No URL", http.StatusBadRequest)
		return
	}

	s.deliver(w, r, media.FetchSpec{
		Kind:     media.Image,
		Target:   media.Target{URL: target},
		Ext:      "jpg",
		Filename: valueOr(q.Get("filename"), "image"),
	})
}

func (s *Server) handleProcessMerge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, formatID := q.Get("url"), q.Get("format_id")
	if source == "" || formatID == "" {
		http.Error(w, "Invalid parameters", http.StatusBadRequest)
		return
	}

	s.deliver(w, r, media.FetchSpec{
		Kind: media.Video,
		Target: media.Target{
			SourceURL:   source,
			VideoFormat: formatID,
			AudioFormat: valueOr(q.Get("audio_format"), media.BestAudio),
		},
		Ext:      "mp4",
		Filename: valueOr(q.Get("title"), "video"),
	})
}

// deliver opens the spec and relays it. Once headers are sent, failures can
// only be logged.
func (s *Server) deliver(w http.ResponseWriter, r *http.Request, spec media.FetchSpec) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	d, err := s.deliverer.Open(r.Context(), spec)
	if err != nil {
		code := statusFor(err)
		logger.Warn().Err(err).Int("status", code).Msg("delivery failed")
		http.Error(w, deliveryMessage(err), code)
		return
	}
	defer d.Close()

	if n, err := d.Send(r.Context(), w); err != nil {
		logger.Debug().Err(err).Int64("bytes", n).Msg("relay ended early")
	}
}

// DownloadURL is the delivery route for an option.
func DownloadURL(opt media.Option, title string) string {
	v := url.Values{}
	v.Set("title", media.CleanTitle(title))
	if opt.RequiresMerge {
		v.Set("url", opt.SourceURL)
		v.Set("format_id", opt.VideoFormat)
		if opt.AudioFormat != "" && opt.AudioFormat != media.BestAudio {
			v.Set("audio_format", opt.AudioFormat)
		}
		return "/process_merge?" + v.Encode()
	}
	v.Set("url", opt.URL)
	v.Set("ext", opt.Ext)
	return "/proxy_download?" + v.Encode()
}

// ImageURL is the image relay route for imageURL.
func ImageURL(imageURL, filename string) string {
	v := url.Values{}
	v.Set("url", imageURL)
	if filename != "" {
		v.Set("filename", filename)
	}
	return "/proxy_image?" + v.Encode()
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
