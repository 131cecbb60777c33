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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/exograd/go-influx/check"
	"github.com/exograd/go-influx/dhttp"
	"github.com/exograd/go-log"
	"github.com/klauspost/compress/gzip"
)

const (
	DefaultURI           = "http://localhost:8086"
	DefaultBatchSize     = 10_000
	DefaultFlushInterval = 1
)

type ClientCfg struct {
	Log        *log.Logger   `json:"-"`
	HTTPClient *dhttp.Client `json:"-"`
	Hostname   string        `json:"-"`

	URI      string `json:"uri"`
	Bucket   string `json:"bucket"`
	Org      string `json:"org"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Password string `json:"password"`

	// OrgId is resolved from Org when the client is created unless it is set
	// or SkipOrgIdResolution is true.
	OrgId               string `json:"org_id"`
	SkipOrgIdResolution bool   `json:"skip_org_id_resolution"`

	Precision     Precision         `json:"precision"`
	GZip          bool              `json:"gzip"`
	BatchSize     int               `json:"batch_size"`
	FlushInterval int               `json:"flush_interval"`
	Tags          map[string]string `json:"tags"`
	GoProbe       bool              `json:"go_probe"`

	LogRequests bool `json:"log_requests"`

	// Timeout is the maximum duration of a request in seconds; zero selects
	// the default of the HTTP client.
	Timeout int `json:"timeout"`

	TLS *dhttp.TLSClientCfg `json:"tls"`
}

func (cfg *ClientCfg) Check(c *check.Checker) {
	if cfg.URI != "" {
		c.CheckStringURI("uri", cfg.URI)
	}

	c.CheckStringNotEmpty("bucket", cfg.Bucket)
	c.CheckStringNotEmpty("org", cfg.Org)

	if cfg.Precision != 0 {
		c.Check("precision", cfg.Precision.IsValid(), "invalid precision")
	}

	c.CheckIntMin("batch_size", cfg.BatchSize, 0)
	c.CheckIntMin("flush_interval", cfg.FlushInterval, 0)
	c.CheckIntMin("timeout", cfg.Timeout, 0)

	c.CheckOptionalObject("tls", cfg.TLS)
}

func HTTPClientCfg(cfg *ClientCfg) dhttp.ClientCfg {
	return dhttp.ClientCfg{
		LogRequests: cfg.LogRequests,
		Timeout:     cfg.Timeout,
		TLS:         cfg.TLS,
	}
}

type Client struct {
	Cfg        ClientCfg
	Log        *log.Logger
	HTTPClient *dhttp.Client

	baseURI *url.URL
	orgId   string
	tags    map[string]string

	queue     Points
	queueMu   sync.Mutex
	flushChan chan struct{}

	stopChan chan struct{}
	stopOnce sync.Once
	stopped  bool
	wg       sync.WaitGroup
}

// NewClient creates a client and resolves the identifier of the
// organization. The identifier is never refreshed afterwards: if the
// organization is recreated, a new client must be created.
func NewClient(cfg ClientCfg) (*Client, error) {
	if cfg.Log == nil {
		cfg.Log = log.DefaultLogger("influx")
	}

	if cfg.URI == "" {
		cfg.URI = DefaultURI
	}

	if cfg.Precision == 0 {
		cfg.Precision = DefaultPrecision
	}

	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}

	checker := check.NewChecker()
	cfg.Check(checker)
	if err := checker.Error(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	baseURI, err := url.Parse(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("invalid uri: %w", err)
	}

	if cfg.HTTPClient == nil {
		httpClientCfg := HTTPClientCfg(&cfg)
		httpClientCfg.Log = cfg.Log.Child("http-client", log.Data{})

		client, err := dhttp.NewClient(httpClientCfg)
		if err != nil {
			return nil, fmt.Errorf("cannot create http client: %w", err)
		}

		cfg.HTTPClient = client
	}

	tags := make(map[string]string)
	if cfg.Hostname != "" {
		tags["host"] = cfg.Hostname
	}
	for name, value := range cfg.Tags {
		tags[name] = value
	}

	c := &Client{
		Cfg:        cfg,
		Log:        cfg.Log,
		HTTPClient: cfg.HTTPClient,

		baseURI: baseURI,
		orgId:   cfg.OrgId,
		tags:    tags,

		flushChan: make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}

	if c.orgId == "" && !cfg.SkipOrgIdResolution {
		orgId, err := c.FetchOrgId(context.Background())
		if err != nil {
			return nil, fmt.Errorf("cannot fetch id of organization %q: %w",
				cfg.Org, err)
		}

		c.Log.Debug(1, "organization %q has id %q", cfg.Org, orgId)

		c.orgId = orgId
	}

	return c, nil
}

// WithBucket returns a client targeting another bucket. The new client
// shares the transport and the organization identifier of the original one
// but has its own write queue, which is not started.
func (c *Client) WithBucket(bucket string) *Client {
	cfg := c.Cfg
	cfg.Bucket = bucket

	return &Client{
		Cfg:        cfg,
		Log:        c.Log,
		HTTPClient: c.HTTPClient,

		baseURI: c.baseURI,
		orgId:   c.orgId,
		tags:    c.tags,

		flushChan: make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}
}

func (c *Client) OrgId() string {
	return c.orgId
}

func (c *Client) Bucket() string {
	return c.Cfg.Bucket
}

func (c *Client) Terminate() {
	c.HTTPClient.Terminate()
}

func (c *Client) endpointURI(path string, query url.Values) *url.URL {
	uri := c.baseURI.JoinPath(path)
	uri.RawQuery = query.Encode()

	return uri
}

func (c *Client) authenticate(header http.Header) {
	switch {
	case c.Cfg.Token != "":
		header.Set("Authorization", "Token "+c.Cfg.Token)

	case c.Cfg.Username != "":
		credentials := c.Cfg.Username + ":" + c.Cfg.Password
		header.Set("Authorization",
			"Basic "+base64.StdEncoding.EncodeToString([]byte(credentials)))
	}
}

type response struct {
	Status int
	Header http.Header
	Body   []byte
}

// sendRequest sends a request and reads the response body. Every failure
// before a status code is obtained is reported as a communication error.
func (c *Client) sendRequest(ctx context.Context, method, path string, query url.Values, header http.Header, body io.Reader) (*response, error) {
	uri := c.endpointURI(path, query)

	if header == nil {
		header = make(http.Header)
	}
	c.authenticate(header)

	res, err := c.HTTPClient.SendRequest(ctx, method, uri, header, body)
	if err != nil {
		return nil, NewCommunicationError(err, "cannot send request")
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, NewCommunicationError(err, "cannot read response body")
	}

	return &response{
		Status: res.StatusCode,
		Header: res.Header,
		Body:   resBody,
	}, nil
}

func (c *Client) sendJSONRequest(ctx context.Context, method, path string, query url.Values, value interface{}) (*response, error) {
	header := make(http.Header)

	var body io.Reader
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cannot encode request body: %w", err)
		}

		header.Set("Content-Type", "application/json")
		body = bytes.NewReader(data)
	}

	return c.sendRequest(ctx, method, path, query, header, body)
}

func decodeResponse(res *response, dest interface{}) error {
	if err := json.Unmarshal(res.Body, dest); err != nil {
		return &Error{
			Kind:    ErrorKindSyntax,
			Message: fmt.Sprintf("cannot decode response body: %v", err),
			Status:  res.Status,
		}
	}

	return nil
}

func gzipData(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func flushInterval(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
