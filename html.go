/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/deckhand/internal/registry"
)

//go:embed assets/*
var assets embed.FS

// bundleFS is the presentation bundle: --static-dir if set, otherwise the
// embedded placeholder.
func bundleFS(cfg *Config) fs.FS {
	if cfg.staticDir != "" {
		return os.DirFS(cfg.staticDir)
	}

	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err)
	}

	return sub
}

func contentType(name string, data []byte) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}

	return http.DetectContentType(data)
}

// serveBundle answers every path without a route of its own. Unknown paths
// without a file extension fall back to index.html so the client can route
// them itself.
func serveBundle(cfg *Config, errs chan<- error) http.Handler {
	bundle := bundleFS(cfg)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

			return
		}

		rest, ok := strings.CutPrefix(r.URL.Path, cfg.prefix)
		if !ok {
			notFound(cfg, w)

			return
		}

		name := strings.TrimPrefix(path.Clean("/"+rest), "/")
		if name == "" {
			name = "index.html"
		}

		data, err := fs.ReadFile(bundle, name)
		if err != nil {
			if path.Ext(name) != "" {
				notFound(cfg, w)

				return
			}

			name = "index.html"

			data, err = fs.ReadFile(bundle, name)
			if err != nil {
				notFound(cfg, w)

				return
			}
		}

		if name == "index.html" {
			w.Header().Set("Cache-Control", "no-cache")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		}
		w.Header().Set("Content-Type", contentType(name, data))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		if r.Method == http.MethodHead {
			return
		}

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: %s (%s) to %s in %s",
			name,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	})
}

func notFound(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(http.StatusNotFound)

	io.WriteString(w, newPage("Not Found", "Nothing to see here. Back to the lobby."))
}

func serveHealthCheck(cfg *Config, rooms *registry.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, err := fmt.Fprintf(w, "Ok\n%d rooms\n", rooms.Len())
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		// Room links are one-off; nothing here is worth indexing.
		data := "User-agent: *\nDisallow: /\n"

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
