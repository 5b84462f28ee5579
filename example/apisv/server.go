// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yonetani/go-cachefile"
)

// server represents the example report server. It holds one cachefile.Cache
// instance.
type server struct {
	cache *cachefile.Cache
	ttl   time.Duration
	log   zerolog.Logger

	// cachefile.Cache is not safe for concurrent use; mu serializes
	// access across handler goroutines.
	mu sync.Mutex
}

// newServer creates a report server instance.
func newServer(conf *svConfig, log zerolog.Logger) (*server, error) {
	sv := &server{
		ttl: time.Duration(conf.TTLSeconds) * time.Second,
		log: log,
	}
	cache, err := cachefile.NewWithConfig(&cachefile.Config{
		Dir:      conf.CacheDir,
		Prefix:   conf.Prefix,
		Logger:   sv,
		DebugLog: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	sv.cache = cache

	return sv, nil
}

// CacheFileLog implements cachefile.Logger to receive log messages from the
// cachefile package.
func (sv *server) CacheFileLog(line string) {
	sv.log.Debug().Str("component", "cachefile").Msg(line)
}

// ServeHTTP responds to incoming HTTP requests. It extracts the report
// parameter set from the URL requested, and uses it as the cache key for the
// rendered report.
//
// It immediately sends the report to the client if a fresh cached copy
// exists. Otherwise it builds the report, which takes a while, and caches the
// rendered body before responding.
func (sv *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	errf := func(code int, format string, v ...any) {
		b := []byte(fmt.Sprintf(format, v...) + "\n")
		w.Header().Add("Content-Type", "text/plain")
		w.Header().Add("Content-Length", strconv.FormatInt(int64(len(b)), 10))
		w.WriteHeader(code)
		if _, err := w.Write(b); err != nil {
			sv.log.Warn().Err(err).Msg("write response")
		}
	}

	// Check the request.
	switch {
	case r.Method != http.MethodGet:
		errf(http.StatusMethodNotAllowed, "Method %s not allowed.", r.Method)
		return

	case r.URL.Path != "/report":
		errf(http.StatusNotFound, "Resource %s not found.", r.URL.Path)
		return
	}

	// Parse parameters in the query string.
	param := reportParam{Account: "demo", Days: 7}
	qvals := r.URL.Query()
	if s := qvals.Get("account"); s != "" {
		param.Account = s
	}
	if s := qvals.Get("days"); s != "" {
		v, err := strconv.ParseUint(s, 10, 16)
		switch {
		case err != nil:
			errf(http.StatusBadRequest, "Invalid days %q: %v", s, err)
			return
		case v < 1, 366 < v:
			errf(http.StatusBadRequest, "Days %d out of range 1..366.", v)
			return
		}
		param.Days = int(v)
	}
	if s := qvals.Get("detail"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			errf(http.StatusBadRequest, "Invalid detail %q: %v", s, err)
			return
		}
		param.Detail = v
	}

	startedAt := time.Now()
	body, cached, err := sv.report(param)
	if err != nil {
		sv.log.Error().Err(err).Msg("report")
		errf(http.StatusInternalServerError, "Report failed.")
		return
	}

	b := []byte(body)
	tag := "MISS"
	if cached {
		tag = "HIT"
	}
	w.Header().Add("Content-Type", "application/json")
	w.Header().Add("Content-Length", strconv.Itoa(len(b)))
	w.Header().Add("X-Cache", tag)
	if _, err := w.Write(b); err != nil {
		sv.log.Warn().Err(err).Msg("write response")
		return
	}

	sv.log.Info().
		Str("account", param.Account).
		Int("days", param.Days).
		Str("cache", tag).
		Dur("elapsed", time.Since(startedAt)).
		Msg("served")
}

// report returns the rendered report body for param, from the cache when a
// fresh copy exists, building and caching it otherwise.
func (sv *server) report(param reportParam) (string, bool, error) {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if _, err := sv.cache.SetHash(param); err != nil {
		return "", false, fmt.Errorf("cache key: %w", err)
	}
	if _, err := sv.cache.CheckExpireAge(sv.ttl); err != nil {
		return "", false, fmt.Errorf("cache expiry: %w", err)
	}

	body, err := sv.cache.Content()
	switch {
	case err == nil:
		return body, true, nil
	case !errors.Is(err, cachefile.ErrNotCached):
		return "", false, fmt.Errorf("cache read: %w", err)
	}

	body, err = buildReport(param)
	if err != nil {
		return "", false, err
	}
	if err := sv.cache.Save(body); err != nil {
		// Still serve the report; only the cache write failed.
		sv.log.Warn().Err(err).Msg("cache write")
	}

	return body, false, nil
}
