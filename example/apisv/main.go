// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// main is the main function of this example program. A simple API server that
// serves slow-to-compute usage reports over HTTP.
//
// Computing a report takes some time, so the response to the first request is
// a bit delayed. However, subsequent requests with the same parameters will
// return the cached report until it expires, resulting in a faster response.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	// Parse command parameters.
	confPath := ""
	switch {
	case len(os.Args) == 1:
		// use default configuration

	case 2 < len(os.Args), strings.HasPrefix(strings.TrimLeft(os.Args[1], "-"), "h"):
		fmt.Fprintf(os.Stderr, "USAGE: %s [ config.yaml ]\n", os.Args[0])
		return

	default:
		confPath = os.Args[1]
	}
	conf, err := loadConfig(confPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// Create the report server.
	sv, err := newServer(conf, log)
	if err != nil {
		log.Fatal().Err(err).Msg("server")
	}

	// Create and run the HTTP server.
	httpd := &http.Server{
		Addr:           conf.Listen,
		Handler:        sv,
		ReadTimeout:    time.Second * 10,
		WriteTimeout:   time.Minute,
		MaxHeaderBytes: 512,
	}
	go func() {
		<-ctx.Done()
		sdctx, sdcancel := context.WithTimeout(context.Background(), time.Second*5)
		defer sdcancel()
		if err := httpd.Shutdown(sdctx); err != nil { //nolint:contextcheck
			log.Error().Err(err).Msg("httpd shutdown")
		}
	}()
	log.Info().Str("listen", conf.Listen).Str("cache_dir", sv.cache.Dir()).Msg("serving")
	if err := httpd.ListenAndServe(); err != nil {
		log.Error().Err(err).Msg("httpd")
	}
}
