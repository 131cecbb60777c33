// Copyright (c) 2022 Exograd SAS.
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that the above
// copyright notice and this permission notice appear in all copies.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
// WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY
// SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
// WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
// ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR
// IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.

package dhttp

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/exograd/go-log"
)

const DefaultUserAgent = "go-influx"

// RoundTripper adds configured headers to outgoing requests and optionally
// logs them once a response has been received.
type RoundTripper struct {
	Cfg *ClientCfg
	Log *log.Logger

	http.RoundTripper
}

func NewRoundTripper(rt http.RoundTripper, cfg *ClientCfg) *RoundTripper {
	return &RoundTripper{
		Cfg: cfg,
		Log: cfg.Log,

		RoundTripper: rt,
	}
}

func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	req = rt.finalizeReq(req)

	res, err := rt.RoundTripper.RoundTrip(req)

	if rt.Cfg.LogRequests {
		rt.logRequest(req, res, err, time.Since(start))
	}

	return res, err
}

func (rt *RoundTripper) finalizeReq(req *http.Request) *http.Request {
	req2 := req.Clone(req.Context())

	for name, values := range rt.Cfg.Header {
		for _, value := range values {
			req2.Header.Add(name, value)
		}
	}

	if req2.Header.Get("User-Agent") == "" {
		req2.Header.Set("User-Agent", DefaultUserAgent)
	}

	return req2
}

func (rt *RoundTripper) logRequest(req *http.Request, res *http.Response, err error, d time.Duration) {
	data := log.Data{
		"method": req.Method,
		"uri":    req.URL.String(),
		"time":   d.Seconds(),
	}

	if err != nil {
		rt.Log.ErrorData(data, "%s %s failed: %v", req.Method,
			req.URL.Path, err)
		return
	}

	data["status"] = res.StatusCode

	rt.Log.InfoData(data, "%s %s %d %s", req.Method, req.URL.Path,
		res.StatusCode, formatRequestTime(d.Seconds()))
}

func formatRequestTime(seconds float64) string {
	switch {
	case seconds < 0.001:
		return fmt.Sprintf("%dµs", int(math.Ceil(seconds*1e6)))
	case seconds < 1.0:
		return fmt.Sprintf("%dms", int(math.Ceil(seconds*1e3)))
	default:
		return fmt.Sprintf("%.1fs", seconds)
	}
}
