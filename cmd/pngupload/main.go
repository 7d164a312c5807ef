// Command pngupload serves a form for uploading PNG files, and keeps what it receives.
//
//	PORT=8080 pngupload -root /srv/pngupload
//	curl -F myfile=@photo.png http://127.0.0.1:8080/upload
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	upload "blitznote.com/src/png.upload"
)

func main() {
	var (
		root     = flag.String("root", ".", "Directory the other paths default to being in")
		uploads  = flag.String("uploads", "", "Where accepted files go (default: <root>/uploads)")
		static   = flag.String("static", "", "Directory with static assets (default: <root>/public)")
		staging  = flag.String("staging", "", "Where uploads are kept until vetted (default: <root>/.staging)")
		allow    = flag.String("allow", ".png", "Comma-separated list of acceptable extensions")
		maxSize  = flag.Int64("max-size", 0, "Maximum size of a request's body in bytes; 0 is unlimited")
		sandbox  = flag.Bool("unveil", true, "Restrict filesystem access to the above directories (OpenBSD)")
		shutdown = flag.Duration("shutdown-timeout", 10*time.Second, "How long to wait for running uploads on exit")
	)
	flag.Parse()

	config := upload.NewDefaultConfiguration(*root)
	logger := config.Logger
	if *uploads != "" {
		config.UploadsDir = *uploads
	}
	if *static != "" {
		config.StaticDir = *static
	}
	if *staging != "" {
		config.StagingDir = *staging
	}
	config.AllowedExtensions = upload.NewAllowList(strings.Split(*allow, ",")...)
	config.MaxTransactionSize = *maxSize

	addr, err := upload.ListenAddress(os.LookupEnv)
	if err != nil {
		logger.Fatal(err)
	}
	router, err := upload.NewRouter(config)
	if err != nil {
		logger.Fatal(err)
	}
	if *sandbox {
		if err := config.Unveil(); err != nil {
			logger.Fatal(err)
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 30 * time.Second,
		ErrorLog:          logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("Server running on port %s", strings.TrimPrefix(addr, ":"))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal(err)
	}
}
