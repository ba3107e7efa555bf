/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// qrSize is in pixels; large enough to scan from across a room.
const qrSize = 320

// joinURL is where a player lands to join code: the bundle root with a room
// query parameter. The base is --base-url, or derived from the request,
// respecting TLS and X-Forwarded-Proto.
func joinURL(cfg *Config, r *http.Request, code string) (string, error) {
	base := cfg.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		base = scheme + "://" + r.Host + cfg.prefix + "/"
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("room", code)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func serveJoinURL(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		link, err := joinURL(cfg, r, ps.ByName("code"))
		if err != nil {
			http.Error(w, "invalid base url", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, err = w.Write([]byte(link + "\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

// serveQR renders the join URL for :code as a PNG, so the host screen can
// show it for players to scan.
func serveQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")

		link, err := joinURL(cfg, r, code)
		if err != nil {
			http.Error(w, "invalid base url", http.StatusInternalServerError)

			return
		}

		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, err = w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Join code for room %q to %s", code, realIP(r))
	}
}
