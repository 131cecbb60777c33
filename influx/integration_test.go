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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/exograd/go-influx/dtime"
	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests run against a real server when INFLUX_TEST_URI is set.
type integrationCfg struct {
	URI    string `envconfig:"URI"`
	Org    string `envconfig:"ORG" default:"exograd"`
	Bucket string `envconfig:"BUCKET" default:"go-influx-test"`
	Token  string `envconfig:"TOKEN"`
}

func integrationClient(t *testing.T) *Client {
	var cfg integrationCfg
	require.NoError(t, envconfig.Process("INFLUX_TEST", &cfg))

	if cfg.URI == "" {
		t.Skip("INFLUX_TEST_URI not set")
	}

	c, err := NewClient(ClientCfg{
		URI:    cfg.URI,
		Org:    cfg.Org,
		Bucket: cfg.Bucket,
		Token:  cfg.Token,
	})
	require.NoError(t, err)

	t.Cleanup(c.Terminate)

	return c
}

func TestIntegrationWriteQuery(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c := integrationClient(t)
	ctx := context.Background()

	bucket := fmt.Sprintf("go-influx-%d", time.Now().UnixNano())
	require.NoError(c.CreateDatabase(ctx, bucket))
	defer c.DropDatabase(ctx, bucket)

	bc := c.WithBucket(bucket)

	now := time.Now()

	p := NewPointWithTimestamp("temp", PrecisionNanoseconds.Timestamp(now)).
		AddStringTag("host", "server A,01").
		AddField("value", Float(23.5)).
		AddField("note", String(`he said "hi"`))

	require.NoError(bc.WritePoint(ctx, p, WriteOptions{
		Precision: PrecisionNanoseconds,
	}))

	query := fmt.Sprintf(`from(bucket: %q) |> range(start: -1h) `+
		`|> filter(fn: (r) => r._measurement == "temp")`, bucket)

	data, err := bc.Query(ctx, ReadQuery{Query: query})
	require.NoError(err)
	assert.Contains(string(data), `he said "hi"`)

	start := dtime.FromTime(now.Add(-time.Hour))
	stop := dtime.FromTime(now.Add(time.Hour))
	require.NoError(bc.DropMeasurement(ctx, "temp", start, stop))

	err = c.WithBucket(bucket+"-missing").WritePoint(ctx, p, WriteOptions{})
	assert.True(errors.Is(err, ErrDatabaseDoesNotExist), err)
}
