// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/dialog"
	"github.com/jeranaias/quill-tui/internal/server"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP service.
const shutdownTimeout = 10 * time.Second

// =============================================================================
// SERVE COMMAND
// =============================================================================

// HandleServe runs the HTTP service until SIGINT or SIGTERM. The prompt
// library and the configuration are reloaded when their files change.
func HandleServe(ctx context.Context, args Args, w io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if args.Addr != "" {
		cfg.Server.Addr = args.Addr
	}
	config.SetGlobal(cfg)

	rt, err := NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := newServer(rt)

	watcher, err := config.NewWatcher(config.DefaultDebounce)
	if err != nil {
		log.Printf("WATCHER_UNAVAILABLE | error=%v", err)
	} else {
		defer watcher.Close()
		watchLibrary(watcher, srv, cfg.ResolvedPromptLibrary())
		if args.ConfigFile == "" {
			if err := config.WatchGlobal(watcher, func(c *config.Config) {
				// listen address and limits need a restart; the library does not
				if lib, err := loadLibrary(c); err == nil {
					srv.SetLibrary(lib)
				}
			}); err != nil {
				log.Printf("CONFIG_WATCH_FAILED | error=%v", err)
			}
		}
		watcher.Start()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	backend := "none"
	if rt.HasBackend() {
		backend = rt.Service.Backend().Name() + " (" + rt.Service.Backend().Model() + ")"
	}
	fmt.Fprintf(w, "%s listening on http://%s backend=%s\n", TitleStyle.Render("quill"), srv.Addr(), backend)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(w, DimStyle.Render("shutting down..."))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// newServer creates the HTTP service from the runtime.
func newServer(rt *Runtime) *server.Server {
	sc := rt.Config.Server
	var gen server.Generator
	if rt.HasBackend() {
		gen = rt.Service
	}
	var store server.HistoryStore
	if rt.Store != nil {
		store = rt.Store
	}
	srv := server.New(server.Config{
		Addr:            sc.Addr,
		AllowedPaths:    sc.AllowedPaths,
		RateLimit:       sc.RateLimit,
		RateBurst:       sc.RateBurst,
		MaxStreams:      sc.MaxStreams,
		StreamExpiry:    time.Duration(sc.StreamExpirySecs) * time.Second,
		GenerateTimeout: rt.Config.Generation.Timeout(),
		AuthToken:       sc.AuthToken,
		CORSOrigins:     sc.CORSOrigins,
	}, gen, rt.Retriever, store)
	srv.SetLibrary(rt.Library)
	return srv
}

// watchLibrary reloads the prompt library file into srv when it changes. A
// library that fails to parse keeps the previous one.
func watchLibrary(w *config.Watcher, srv *server.Server, path string) {
	if path == "" {
		return
	}
	err := w.OnChange(path, func(p string) {
		lib, err := dialog.LoadLibrary(p)
		if err != nil {
			log.Printf("PROMPTS_RELOAD_FAILED | path=%s error=%v", p, err)
			return
		}
		srv.SetLibrary(lib)
		log.Printf("PROMPTS_RELOADED | path=%s prompts=%d", p, len(lib.Prompts))
	})
	if err != nil {
		log.Printf("PROMPTS_WATCH_FAILED | path=%s error=%v", path, err)
	}
}
