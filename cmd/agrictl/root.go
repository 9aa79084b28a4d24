package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"agrimarket/internal/directory/fetcher"
	"agrimarket/internal/directory/schema"
	"agrimarket/internal/discovery"
	"agrimarket/internal/geo"
	"agrimarket/internal/platform/config"
	"agrimarket/internal/platform/logger"
	"agrimarket/pkg/requestcontext"
)

type rootOptions struct {
	baseURL  string
	token    string
	device   string
	asJSON   bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "agrictl",
		Short:         "Inspect marketplace discovery pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "api", "", "marketplace API base URL (default $AGRIMARKET_API_BASE_URL)")
	flags.StringVar(&opts.token, "token", "", "bearer token forwarded to the API")
	flags.StringVar(&opts.device, "device", string(requestcontext.DeviceDesktop), "map surface: desktop, tablet or mobile")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	cmd.AddCommand(
		newKindsCmd(opts),
		newDiscoverCmd(opts),
		newOverviewCmd(opts),
	)
	return cmd
}

// env holds the services a command runs against.
type env struct {
	cfg     config.Config
	kinds   *schema.Registry
	service *discovery.Service
	device  requestcontext.DeviceClass
	log     *slog.Logger
}

func (o *rootOptions) env(cmd *cobra.Command) (*env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		if cfg.Upstream.MediaBaseURL == cfg.Upstream.BaseURL {
			cfg.Upstream.MediaBaseURL = strings.TrimRight(o.baseURL, "/")
		}
		cfg.Upstream.BaseURL = strings.TrimRight(o.baseURL, "/")
	}
	device, err := parseDevice(o.device)
	if err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), o.logLevel, "text")
	kinds := schema.Default()
	if cfg.KindsFile != "" {
		if kinds, err = schema.LoadFile(cfg.KindsFile); err != nil {
			return nil, err
		}
	}

	client := fetcher.New(cfg.Upstream.BaseURL,
		fetcher.WithTimeout(cfg.Upstream.Timeout),
		fetcher.WithRegistry(kinds),
		fetcher.WithLogger(log),
	)
	svc := discovery.NewService(client, kinds,
		discovery.WithDefaultFit(geo.NewFitOptions(cfg.Map.DefaultLat, cfg.Map.DefaultLng, cfg.Map.DefaultZoom, cfg.Map.MaxZoom, cfg.Map.Padding)),
		discovery.WithMediaBaseURL(cfg.Upstream.MediaBaseURL),
		discovery.WithLogger(log),
	)
	return &env{cfg: cfg, kinds: kinds, service: svc, device: device, log: log}, nil
}

func parseDevice(s string) (requestcontext.DeviceClass, error) {
	switch d := requestcontext.DeviceClass(s); d {
	case requestcontext.DeviceDesktop, requestcontext.DeviceTablet, requestcontext.DeviceMobile:
		return d, nil
	default:
		return "", fmt.Errorf("unknown device %q", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
