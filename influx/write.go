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
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

type WriteOptions struct {
	// The client precision is used if Precision is zero.
	Precision       Precision
	RetentionPolicy string
}

func (c *Client) WritePoint(ctx context.Context, p *Point, opts WriteOptions) error {
	return c.WritePoints(ctx, Points{p}, opts)
}

// WritePoints writes a batch of points. All timestamps are interpreted in
// the same precision.
func (c *Client) WritePoints(ctx context.Context, ps Points, opts WriteOptions) error {
	if len(ps) == 0 {
		return nil
	}

	precision := opts.Precision
	if precision == 0 {
		precision = c.Cfg.Precision
	}

	if !precision.IsValid() {
		return fmt.Errorf("invalid precision %v", precision)
	}

	line, err := Encode(ps)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("bucket", c.Cfg.Bucket)
	query.Set("org", c.Cfg.Org)
	query.Set("precision", precision.Code())
	if opts.RetentionPolicy != "" {
		query.Set("rp", opts.RetentionPolicy)
	}

	header := make(http.Header)
	header.Set("Content-Type", "text/plain; charset=utf-8")

	body := []byte(line)
	if c.Cfg.GZip {
		body, err = gzipData(body)
		if err != nil {
			return fmt.Errorf("cannot compress request body: %w", err)
		}

		header.Set("Content-Encoding", "gzip")
	}

	res, err := c.sendRequest(ctx, "POST", "/api/v2/write", query, header,
		bytes.NewReader(body))
	if err != nil {
		return err
	}

	return Classify(EndpointWrite, res.Status, res.Body)
}

func (c *Client) Start() {
	c.wg.Add(1)
	go c.main()

	if c.Cfg.GoProbe {
		c.wg.Add(1)
		go c.goProbeMain()
	}
}

// Stop terminates background goroutines after having written all queued
// points. Calling Stop more than once has no effect. Points enqueued once the
// client is stopped are written immediately.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.queueMu.Lock()
		c.stopped = true
		c.queueMu.Unlock()

		close(c.stopChan)
		c.wg.Wait()

		c.flush()
	})
}

func (c *Client) EnqueuePoint(p *Point) {
	c.EnqueuePoints(Points{p})
}

// EnqueuePoints adds points to the write queue. Default tags are added to
// copies of the points; invalid points are logged and discarded.
func (c *Client) EnqueuePoints(ps Points) {
	ps2 := make(Points, 0, len(ps))

	for _, p := range ps {
		if err := ValidatePoints(Points{p}); err != nil {
			c.Log.Error("discarding invalid point: %v", err)
			continue
		}

		ps2 = append(ps2, c.withDefaultTags(p))
	}

	c.queueMu.Lock()
	c.queue = append(c.queue, ps2...)
	full := len(c.queue) >= c.Cfg.BatchSize
	stopped := c.stopped
	c.queueMu.Unlock()

	if stopped {
		c.flush()
		return
	}

	if full {
		select {
		case c.flushChan <- struct{}{}:
		default:
		}
	}
}

func (c *Client) QueueLength() int {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	return len(c.queue)
}

func (c *Client) withDefaultTags(p *Point) *Point {
	if len(c.tags) == 0 {
		return p
	}

	names := make([]string, 0, len(c.tags))
	for name := range c.tags {
		names = append(names, name)
	}
	sort.Strings(names)

	p2 := p.Copy()
	for _, name := range names {
		if !p2.HasTag(name) {
			p2.AddStringTag(name, c.tags[name])
		}
	}

	return p2
}

func (c *Client) main() {
	defer c.wg.Done()

	ticker := time.NewTicker(flushInterval(c.Cfg.FlushInterval))
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			c.flush()
			return

		case <-ticker.C:
			c.flush()

		case <-c.flushChan:
			c.flush()
		}
	}
}

func (c *Client) flush() {
	c.queueMu.Lock()
	ps := c.queue
	c.queue = nil
	c.queueMu.Unlock()

	for len(ps) > 0 {
		n := len(ps)
		if n > c.Cfg.BatchSize {
			n = c.Cfg.BatchSize
		}

		batch := ps[:n]
		ps = ps[n:]

		// Failed batches are not retried.
		if err := c.WritePoints(context.Background(), batch,
			WriteOptions{}); err != nil {
			c.Log.Error("cannot write %d points: %v", len(batch), err)
		}
	}
}
