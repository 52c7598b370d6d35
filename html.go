/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const robotsTxt = `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

func logServe(r *http.Request, what string, written int, startTime time.Time) {
	log.Debug().
		Str("module", "web").
		Str("client", realIP(r)).
		Str("size", humanReadableSize(int64(written))).
		Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
		Msgf("SERVE: %s", what)
}

func homePage(cfg *Config) string {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	b.WriteString(`<title>pricebox</title></head><body>`)
	b.WriteString(`<h1>pricebox</h1><p>Guess the price, closest wins.</p><ul>`)
	fmt.Fprintf(&b, `<li><a href="%s/new">Start a new room</a></li>`, html.EscapeString(cfg.prefix))
	fmt.Fprintf(&b, `<li><a href="%s/rooms">Open rooms</a></li>`, html.EscapeString(cfg.prefix))
	fmt.Fprintf(&b, `<li><a href="%s/sets">Item sets</a></li>`, html.EscapeString(cfg.prefix))
	b.WriteString(`</ul></body></html>`)

	return b.String()
}

func serveHomePage(cfg *Config, errs chan<- error) httprouter.Handle {
	page := homePage(cfg)

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(page)))
		securityHeaders(cfg, w)

		_ = getOrSetCallerID(w, r)

		written, err := w.Write([]byte(page))
		if err != nil {
			errs <- err

			return
		}

		logServe(r, "Home page", written, startTime)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(robotsTxt)))
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(robotsTxt))
		if err != nil {
			errs <- err

			return
		}

		logServe(r, "robots.txt", written, startTime)
	}
}
