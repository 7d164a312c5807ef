// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build caddyserver1.0
// +build caddyserver1.0

package upload

import (
	"net/http"
	"os"
	"strconv"

	"github.com/mholt/caddy"
	"github.com/mholt/caddy/caddyhttp/httpserver"
	"golang.org/x/text/unicode/norm"
)

func init() {
	caddy.RegisterPlugin("pngupload", caddy.Plugin{
		ServerType: "http",
		Action:     Setup,
	})
	httpserver.RegisterDevDirective("pngupload", "upload")
}

// Setup configures an upload Handler for every scope of directive 'pngupload'.
//
// This is called by Caddy as consequence of invoking `caddy.RegisterPlugin` in init.
func Setup(c *caddy.Controller) error {
	config, err := parseCaddyConfig(c)
	if err != nil {
		return err
	}

	handlers := make(map[string]*Handler, len(config.Scope))
	for scope, scopeConfig := range config.Scope {
		h, err := NewHandler(scopeConfig)
		if err != nil {
			return c.Err(err.Error())
		}
		handlers[scope] = h
	}

	site := httpserver.GetConfig(c)
	site.AddMiddleware(func(next httpserver.Handler) httpserver.Handler {
		return &CaddyHandler{
			Next:     next,
			Config:   *config,
			handlers: handlers,
		}
	})

	return nil
}

// HandlerConfiguration is the result of directives found in a 'Caddyfile'.
type HandlerConfiguration struct {
	// Prefixes on which Caddy activates this plugin (read-only).
	//
	// Order matters because scopes can overlap.
	PathScopes []string

	// Maps scopes (paths) to their own and potentially different configurations.
	Scope map[string]*Configuration
}

// CaddyHandler represents a configured instance of this plugin for uploads.
type CaddyHandler struct {
	Next   httpserver.Handler
	Config HandlerConfiguration

	handlers map[string]*Handler
}

// ServeHTTP takes POSTs in any of the scopes, and passes everything else on.
func (h *CaddyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) (int, error) {
	if r.Method != http.MethodPost {
		return h.Next.ServeHTTP(w, r)
	}
	// iterate over the scopes in the order they have been defined
	for _, scope := range h.Config.PathScopes {
		if httpserver.Path(r.URL.Path).Matches(scope) {
			_, err := h.handlers[scope].serveHTTP(w, r)
			// The response has been written in any case.
			return 0, err
		}
	}
	return h.Next.ServeHTTP(w, r)
}

func parseCaddyConfig(c *caddy.Controller) (*HandlerConfiguration, error) {
	siteConfig := &HandlerConfiguration{
		PathScopes: make([]string, 0, 1),
		Scope:      make(map[string]*Configuration),
	}

	for c.Next() {
		config := NewDefaultConfiguration("")
		config.UploadsDir = ""
		config.StagingDir = os.TempDir()
		config.StaticDir = ""

		scopes := c.RemainingArgs() // most likely only one path; but could be more
		if len(scopes) == 0 {
			return siteConfig, c.ArgErr()
		}
		siteConfig.PathScopes = append(siteConfig.PathScopes, scopes...)

		for c.NextBlock() {
			key := c.Val()
			switch key {
			case "to":
				if !c.NextArg() {
					return siteConfig, c.ArgErr()
				}
				// gets created on first use, but must not be anything else than a directory
				writeToPath := c.Val()
				if finfo, err := os.Stat(writeToPath); err == nil && !finfo.IsDir() {
					return siteConfig, c.Err("'to' must be a directory")
				}
				config.UploadsDir = writeToPath
			case "staging":
				if !c.NextArg() {
					return siteConfig, c.ArgErr()
				}
				config.StagingDir = c.Val()
			case "allow":
				exts := c.RemainingArgs()
				if len(exts) == 0 {
					return siteConfig, c.ArgErr()
				}
				config.AllowedExtensions = NewAllowList(exts...)
			case "field":
				if !c.NextArg() {
					return siteConfig, c.ArgErr()
				}
				config.FormField = c.Val()
			case "max_transaction_size":
				if !c.NextArg() {
					return siteConfig, c.ArgErr()
				}
				s, err := strconv.ParseInt(c.Val(), 10, 64)
				if err != nil || s < 0 {
					return siteConfig, c.ArgErr()
				}
				config.MaxTransactionSize = s
			case "filenames_form":
				if !c.NextArg() {
					return siteConfig, c.ArgErr()
				}
				switch c.Val() {
				case "NFC":
					config.UnicodeForm = &struct{ Use norm.Form }{Use: norm.NFC}
				case "NFD":
					config.UnicodeForm = &struct{ Use norm.Form }{Use: norm.NFD}
				case "none":
					// nop
				default:
					return siteConfig, c.ArgErr()
				}
			default:
				return siteConfig, c.ArgErr()
			}
		}

		if config.UploadsDir == "" {
			return siteConfig, c.Errf("The destination path 'to' is missing")
		}

		for idx := range scopes {
			siteConfig.Scope[scopes[idx]] = config
		}
	}

	return siteConfig, nil
}
