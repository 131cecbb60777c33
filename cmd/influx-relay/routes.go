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

package main

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/exograd/go-influx/check"
	"github.com/exograd/go-influx/dhttp"
	"github.com/exograd/go-influx/influx"
)

type PointData struct {
	Measurement string                 `json:"measurement"`
	Tags        map[string]string      `json:"tags,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
	Timestamp   *int64                 `json:"timestamp,omitempty"`
}

type PointsRequest struct {
	Points []*PointData `json:"points"`
}

type StatusResponse struct {
	Version     string `json:"version"`
	Bucket      string `json:"bucket"`
	OrgId       string `json:"org_id,omitempty"`
	QueueLength int    `json:"queue_length"`
}

func (s *Service) initRoutes() {
	s.Server.Route("/points", "POST", s.hPostPoints)
	s.Server.Route("/query", "POST", s.hPostQuery)
	s.Server.Route("/status", "GET", s.hGetStatus)
}

// Point builds a point with tags and fields sorted by key, since json
// objects are not ordered.
func (pd *PointData) Point() (*influx.Point, error) {
	p := influx.NewPoint(pd.Measurement)

	for _, key := range sortedKeys(pd.Tags) {
		p.AddStringTag(key, pd.Tags[key])
	}

	for _, key := range sortedKeys(pd.Fields) {
		value, err := influx.ValueOf(pd.Fields[key])
		if err != nil {
			return nil, fmt.Errorf("invalid field %q: %w", key, err)
		}

		p.AddField(key, value)
	}

	if pd.Timestamp != nil {
		p.SetTimestamp(*pd.Timestamp)
	}

	return p, nil
}

func (pd *PointData) Check(c *check.Checker) {
	p, err := pd.Point()
	if err != nil {
		c.AddError("fields", "%v", err)
		return
	}

	p.Check(c)
}

func (r *PointsRequest) Check(c *check.Checker) {
	if c.CheckArrayNotEmpty("points", r.Points) {
		c.CheckObjectArray("points", r.Points)
	}
}

func (r *PointsRequest) InfluxPoints() (influx.Points, error) {
	ps := make(influx.Points, len(r.Points))

	for i, pd := range r.Points {
		p, err := pd.Point()
		if err != nil {
			return nil, fmt.Errorf("invalid point %d: %w", i, err)
		}

		ps[i] = p
	}

	return ps, nil
}

// hPostPoints accepts the same "precision" and "rp" query parameters as the
// write endpoint of the server. With "async", points are queued and written
// in the background: timestamps are converted to the precision of the client,
// and "rp" is rejected since queued points share the default retention
// policy.
func (s *Service) hPostPoints(h *dhttp.Handler) {
	var opts influx.WriteOptions

	if h.HasQueryParameter("precision") {
		precision, err := influx.ParsePrecision(h.QueryParameter("precision"))
		if err != nil {
			h.ReplyInvalidQueryParameter(
				dhttp.NewInvalidQueryParameterError("precision", "%v", err))
			return
		}

		opts.Precision = precision
	}

	opts.RetentionPolicy = h.QueryParameter("rp")

	async := h.HasQueryParameter("async")

	if async && opts.RetentionPolicy != "" {
		h.ReplyInvalidQueryParameter(dhttp.NewInvalidQueryParameterError("rp",
			"retention policy cannot be used for asynchronous writes"))
		return
	}

	var r PointsRequest
	if err := h.JSONRequestObject(&r); err != nil {
		return
	}

	ps, err := r.InfluxPoints()
	if err != nil {
		h.ReplyInternalError(500, "cannot build points: %v", err)
		return
	}

	if async {
		if opts.Precision != 0 {
			precision := s.Influx.Cfg.Precision

			for _, p := range ps {
				if p.Timestamp != nil {
					p.SetTimestamp(opts.Precision.Convert(*p.Timestamp,
						precision))
				}
			}
		}

		s.Influx.EnqueuePoints(ps)
		h.ReplyEmpty(202)
		return
	}

	if err := s.Influx.WritePoints(h.Request.Context(), ps, opts); err != nil {
		s.replyInfluxError(h, err)
		return
	}

	h.ReplyEmpty(204)
}

func (s *Service) hPostQuery(h *dhttp.Handler) {
	var query influx.ReadQuery
	if err := h.JSONRequestData(&query); err != nil {
		return
	}

	data, err := s.Influx.Query(h.Request.Context(), query)
	if err != nil {
		s.replyInfluxError(h, err)
		return
	}

	h.ResponseWriter.Header().Set("Content-Type", "text/csv")
	h.Reply(200, bytes.NewReader(data))
}

func (s *Service) hGetStatus(h *dhttp.Handler) {
	version, err := s.Influx.Version(h.Request.Context())
	if err != nil {
		s.replyInfluxError(h, err)
		return
	}

	res := StatusResponse{
		Version:     version,
		Bucket:      s.Influx.Bucket(),
		OrgId:       s.Influx.OrgId(),
		QueueLength: s.Influx.QueueLength(),
	}

	h.ReplyJSON(200, &res)
}

func (s *Service) replyInfluxError(h *dhttp.Handler, err error) {
	var influxErr *influx.Error
	if !errors.As(err, &influxErr) {
		h.ReplyError(400, "invalid_request", "%v", err)
		return
	}

	var status int

	switch influxErr.Kind {
	case influx.ErrorKindSyntax:
		status = 400
	case influx.ErrorKindDatabaseDoesNotExist,
		influx.ErrorKindRetentionPolicyDoesNotExist:
		status = 404
	case influx.ErrorKindCommunication:
		status = 503
	default:
		status = 502
	}

	data := dhttp.APIErrorData{}
	if influxErr.Status != 0 {
		data["upstream_status"] = influxErr.Status
	}

	h.ReplyErrorData(status, string(influxErr.Kind), data, "%s",
		influxErr.Message)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
