// Package browser launches (or connects to) Chrome through go-rod and opens
// storefront tabs for the decoration engine.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless runs the local Chrome without a window. Default: true.
	Headless *bool

	// Stealth applies go-rod/stealth evasions to new tabs.
	Stealth bool

	// ResourceBlocking lists resource types to block (images, fonts, media).
	// Stylesheets are never blocked: computed positions depend on them.
	ResourceBlocking []string

	// NavTimeout bounds navigation and load. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Headless == nil {
		t := true
		c.Headless = &t
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser owns one Chrome connection.
type Browser struct {
	cfg  Config
	mu   sync.Mutex
	rod  *rod.Browser
	lnch *launcher.Launcher
}

// New creates a Browser. Call Start before opening tabs.
func New(cfg Config) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

// Start launches Chrome or connects to the remote instance.
func (b *Browser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rod != nil {
		return nil
	}
	log := b.cfg.Logger

	wsURL := b.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(*b.cfg.Headless)
		if b.cfg.Stealth {
			l = l.Set("disable-blink-features", "AutomationControlled")
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", *b.cfg.Headless)
	}

	r := rod.New().Context(ctx).ControlURL(wsURL)
	if err := r.Connect(); err != nil {
		b.cleanupLocked()
		return fmt.Errorf("browser: connect: %w", err)
	}
	b.rod = r
	return nil
}

// Close shuts Chrome down (a remote Chrome is only disconnected).
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cleanupLocked()
}

func (b *Browser) cleanupLocked() error {
	var err error
	if b.rod != nil {
		err = b.rod.Close()
		b.rod = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}

func (b *Browser) handle() *rod.Browser {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rod
}
