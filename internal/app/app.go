package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/abrezinsky/tabulator/internal/config"
	"github.com/abrezinsky/tabulator/internal/handlers"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/metrics"
	"github.com/abrezinsky/tabulator/internal/repository"
	"github.com/abrezinsky/tabulator/internal/services"
	"github.com/abrezinsky/tabulator/internal/setup"
	"github.com/abrezinsky/tabulator/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      *config.Config
	repo     *repository.Repository
	settings *services.SettingsService
	hub      *websocket.Hub
	handlers *handlers.Handlers
	importer *setup.Importer
	network  networkProvider
}

// New opens the database and wires the service layer, the live hub and the
// HTTP handlers. Nothing runs until Run or Serve is called.
func New(log logger.Logger, cfg *config.Config) (*App, error) {
	repo, err := repository.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		repo.Close()
		return nil, err
	}

	settingsService := services.NewSettingsService(log, repo)
	eventService := services.NewEventService(log, repo)
	contestantService := services.NewContestantService(log, repo)
	judgeService := services.NewJudgeService(log, repo, settingsService)
	rankingService := services.NewRankingService(log, repo)

	hub := websocket.New(log, rankingService, cfg.Live.PollInterval, m)

	h := handlers.New(handlers.Services{
		Event:      eventService,
		Contestant: contestantService,
		Judge:      judgeService,
		Scoring:    services.NewScoringService(log, repo, m),
		Ranking:    rankingService,
		Rounds:     services.NewRoundService(log, repo, m),
		Settings:   settingsService,
	}, hub, m, log)

	return &App{
		log:      log,
		cfg:      cfg,
		repo:     repo,
		settings: settingsService,
		hub:      hub,
		handlers: h,
		importer: setup.NewImporter(log, eventService, contestantService, judgeService),
		network:  realNetworkProvider{},
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Importer returns the event definition importer
func (a *App) Importer() *setup.Importer {
	return a.importer
}

// Close releases the database
func (a *App) Close() error {
	return a.repo.Close()
}

// Run listens on the configured address and serves until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the live hub and the HTTP server on ln. It returns nil after a
// clean shutdown triggered by ctx.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	baseURL := a.resolveBaseURL(ctx, ln.Addr())

	srv := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.log.Info("Server starting", "url", baseURL, "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// resolveBaseURL stores the URL QR codes point at. A configured URL always
// wins; otherwise the detected LAN address replaces an empty or localhost one.
func (a *App) resolveBaseURL(ctx context.Context, addr net.Addr) string {
	if a.cfg.Server.BaseURL != "" {
		if err := a.settings.SetBaseURL(ctx, a.cfg.Server.BaseURL); err != nil {
			a.log.Warn("Failed to set base_url", "error", err)
		}
		return a.cfg.Server.BaseURL
	}

	port := a.cfg.Server.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	baseURL := fmt.Sprintf("http://%s:%d", getPreferredIP(a.network), port)
	if err := a.settings.SetDefaultBaseURL(ctx, baseURL); err != nil {
		a.log.Warn("Failed to set default base_url", "error", err)
	}
	return baseURL
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider lists network interfaces
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for judges' phones on the LAN.
// Private ranges win; any other non-loopback address comes next; then localhost.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		s := ip.String()
		if strings.HasPrefix(s, "192.168.") || strings.HasPrefix(s, "10.") || isPrivate172(ip) {
			return s
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
