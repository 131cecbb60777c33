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

package influx

import (
	"context"
	"net/url"

	"github.com/exograd/go-influx/dtime"
)

// Query executes a flux query and returns the raw response body, usually an
// annotated csv document.
func (c *Client) Query(ctx context.Context, query ReadQuery) ([]byte, error) {
	if query.Query == "" {
		return nil, NewError(ErrorKindUnknown, "no flux query to serialize")
	}

	if query.Type == "" {
		query.Type = QueryTypeFlux
	}

	params := url.Values{}
	params.Set("org", c.Cfg.Org)

	res, err := c.sendJSONRequest(ctx, "POST", "/api/v2/query", params, query)
	if err != nil {
		return nil, err
	}

	if err := Classify(EndpointQuery, res.Status, res.Body); err != nil {
		return nil, err
	}

	return res.Body, nil
}

// DropMeasurement deletes all points of a measurement in the current bucket
// between two instants.
func (c *Client) DropMeasurement(ctx context.Context, measurement string, start, stop dtime.Timestamp) error {
	params := url.Values{}
	params.Set("bucket", c.Cfg.Bucket)
	params.Set("org", c.Cfg.Org)

	query := DeleteQuery{
		Predicate: MeasurementPredicate(measurement),
		Start:     start,
		Stop:      stop,
	}

	res, err := c.sendJSONRequest(ctx, "POST", "/api/v2/delete", params,
		&query)
	if err != nil {
		return err
	}

	return Classify(EndpointDropMeasurement, res.Status, res.Body)
}
