package cmd

import (
	"flashdl/internal/config"
	"flashdl/internal/download"
	"flashdl/internal/extract"
	"flashdl/internal/proxy"
	"flashdl/internal/resolve"
	"flashdl/internal/scrape"
	"flashdl/internal/site"
)

// app is the wired pipeline shared by serve, resolve and get.
type app struct {
	caps     config.Capabilities
	resolver *resolve.Resolver
	proxy    *proxy.Proxy
}

func newApp(cfg *config.Config) *app {
	caps := config.DetectCapabilities(cfg)

	var merger download.Merger
	if caps.MergeAvailable {
		merger = download.NewRemuxer(cfg, caps)
	}

	return &app{
		caps: caps,
		resolver: resolve.New(
			extract.NewYtDlp(cfg, caps),
			scrape.NewDiscussion(cfg.ScrapeTimeout.Duration),
			scrape.NewImageMeta(cfg.ScrapeTimeout.Duration),
			site.NewClassifier(cfg.DiscussionHosts, cfg.ImageHosts),
		),
		proxy: proxy.New(cfg, caps, merger),
	}
}
