// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"
)

// reportParam represents the set of parameters to build a usage report. The
// same report is always built from the same parameter set, so the rendered
// body is cached using this reportParam as the cache key. All fields are
// exported so that the cache can serialize the value deterministically.
type reportParam struct {
	Account string `json:"account"`
	Days    int    `json:"days"`
	Detail  bool   `json:"detail"`
}

// report is the JSON document served to the client.
type report struct {
	Account     string      `json:"account"`
	Days        int         `json:"days"`
	TotalBytes  uint64      `json:"totalBytes"`
	TotalCalls  uint64      `json:"totalCalls"`
	Daily       []dailyStat `json:"daily,omitempty"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// dailyStat is one day of usage, included only in detail mode.
type dailyStat struct {
	Day   int    `json:"day"`
	Bytes uint64 `json:"bytes"`
	Calls uint64 `json:"calls"`
}

// buildReport builds and renders the report for param. The numbers are fake
// but deterministic per account, seeded from the account name. The sleep
// stands in for the slow upstream aggregation a real server would perform,
// and is what makes the cache worthwhile.
func buildReport(param reportParam) (string, error) {
	time.Sleep(time.Millisecond * 500)

	seed := fnv.New64a()
	_, _ = seed.Write([]byte(param.Account))
	rnd := rand.New(rand.NewSource(int64(seed.Sum64()))) //nolint:gosec // fake data

	rep := report{
		Account:     param.Account,
		Days:        param.Days,
		GeneratedAt: time.Now().UTC(),
	}
	for day := 1; day <= param.Days; day++ {
		ds := dailyStat{
			Day:   day,
			Bytes: uint64(rnd.Int63n(1 << 30)),
			Calls: uint64(rnd.Int63n(10000)),
		}
		rep.TotalBytes += ds.Bytes
		rep.TotalCalls += ds.Calls
		if param.Detail {
			rep.Daily = append(rep.Daily, ds)
		}
	}

	b, err := json.MarshalIndent(&rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	return string(b) + "\n", nil
}
