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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/exograd/go-influx/dtime"
	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "secret-token"

type testWrite struct {
	Query           map[string]string
	ContentEncoding string
	Body            string
}

type testServer struct {
	*httptest.Server

	mu      sync.Mutex
	writes  []testWrite
	deletes []DeleteQuery
	queries []ReadQuery
	buckets map[string]string
	users   map[string]*User
}

func newTestServer(t *testing.T) *testServer {
	s := &testServer{
		buckets: map[string]string{"metrics": "b1"},
		users:   make(map[string]*User),
	}

	r := chi.NewRouter()

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Influxdb-Version", "v2.7.1")
		w.WriteHeader(204)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/api/v2/orgs", s.hGetOrgs)
		r.Post("/api/v2/write", s.hWrite)
		r.Post("/api/v2/query", s.hQuery)
		r.Post("/api/v2/delete", s.hDelete)
		r.Get("/api/v2/buckets", s.hGetBuckets)
		r.Post("/api/v2/buckets", s.hCreateBucket)
		r.Delete("/api/v2/buckets/{id}", s.hDeleteBucket)
		r.Get("/api/v2/users", s.hListUsers)
		r.Post("/api/v2/users", s.hCreateUser)
		r.Delete("/api/v2/users/{id}", s.hDeleteUser)
		r.Post("/api/v2/authorizations", s.hCreateAuthorization)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)

	return s
}

func (s *testServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token "+testToken {
			replyTestError(w, 401, "unauthorized access")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func replyTestError(w http.ResponseWriter, status int, msg string) {
	replyTestJSON(w, status, map[string]string{
		"code":    http.StatusText(status),
		"message": msg,
	})
}

func replyTestJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}

func (s *testServer) hGetOrgs(w http.ResponseWriter, r *http.Request) {
	orgs := Orgs{Orgs: []*Org{}}
	if r.URL.Query().Get("org") == "exograd" {
		orgs.Orgs = append(orgs.Orgs, &Org{Id: "o1", Name: "exograd"})
	}

	replyTestJSON(w, 200, &orgs)
}

func (s *testServer) hWrite(w http.ResponseWriter, r *http.Request) {
	query := make(map[string]string)
	for name := range r.URL.Query() {
		query[name] = r.URL.Query().Get(name)
	}

	var body io.Reader = r.Body

	encoding := r.Header.Get("Content-Encoding")
	if encoding == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			replyTestError(w, 400, err.Error())
			return
		}
		defer zr.Close()

		body = zr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		replyTestError(w, 400, err.Error())
		return
	}

	if _, found := s.bucketId(query["bucket"]); !found {
		replyTestError(w, 404, `bucket "`+query["bucket"]+`" not found`)
		return
	}

	if query["rp"] == "missing" {
		w.WriteHeader(500)
		w.Write([]byte("retention policy not found: missing"))
		return
	}

	s.mu.Lock()
	s.writes = append(s.writes, testWrite{
		Query:           query,
		ContentEncoding: encoding,
		Body:            string(data),
	})
	s.mu.Unlock()

	w.WriteHeader(204)
}

func (s *testServer) hQuery(w http.ResponseWriter, r *http.Request) {
	var query ReadQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		replyTestError(w, 400, err.Error())
		return
	}

	if query.Query == "invalid" {
		replyTestError(w, 400, "compilation failed")
		return
	}

	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/csv")
	w.Write([]byte(",result,table,_value\n,_result,0,42\n"))
}

func (s *testServer) hDelete(w http.ResponseWriter, r *http.Request) {
	var query DeleteQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		replyTestError(w, 400, err.Error())
		return
	}

	s.mu.Lock()
	s.deletes = append(s.deletes, query)
	s.mu.Unlock()

	w.WriteHeader(204)
}

func (s *testServer) bucketId(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, found := s.buckets[name]
	return id, found
}

func (s *testServer) hGetBuckets(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	buckets := Buckets{Buckets: []*Bucket{}}
	if id, found := s.bucketId(name); found {
		buckets.Buckets = append(buckets.Buckets,
			&Bucket{Id: id, Name: name, OrgId: "o1"})
	}

	replyTestJSON(w, 200, &buckets)
}

func (s *testServer) hCreateBucket(w http.ResponseWriter, r *http.Request) {
	var bucket Bucket
	if err := json.NewDecoder(r.Body).Decode(&bucket); err != nil {
		replyTestError(w, 400, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.buckets[bucket.Name]; found {
		replyTestError(w, 422, "bucket with name "+bucket.Name+
			" already exists")
		return
	}

	bucket.Id = "b" + bucket.Name
	s.buckets[bucket.Name] = bucket.Id

	replyTestJSON(w, 201, &bucket)
}

func (s *testServer) hDeleteBucket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for name, id2 := range s.buckets {
		if id2 == id {
			delete(s.buckets, name)
			w.WriteHeader(204)
			return
		}
	}

	replyTestError(w, 404, "bucket not found")
}

func (s *testServer) hListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := Users{Users: []*User{}}
	for _, user := range s.users {
		users.Users = append(users.Users, user)
	}
	s.mu.Unlock()

	replyTestJSON(w, 200, &users)
}

func (s *testServer) hCreateUser(w http.ResponseWriter, r *http.Request) {
	var user User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		replyTestError(w, 400, err.Error())
		return
	}

	if user.Name == "" {
		replyTestError(w, 400, "user name is required")
		return
	}

	user.Id = "u" + user.Name

	s.mu.Lock()
	s.users[user.Id] = &user
	s.mu.Unlock()

	replyTestJSON(w, 201, &user)
}

func (s *testServer) hDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.users[id]; !found {
		replyTestError(w, 404, "user not found")
		return
	}

	delete(s.users, id)

	w.WriteHeader(204)
}

func (s *testServer) hCreateAuthorization(w http.ResponseWriter, r *http.Request) {
	var req AuthorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		replyTestError(w, 400, err.Error())
		return
	}

	if len(req.Permissions) == 0 {
		replyTestError(w, 400, "permissions are required")
		return
	}

	replyTestJSON(w, 201, &Authorization{
		Id:          "a1",
		Token:       "new-token",
		Status:      req.Status,
		OrgId:       req.OrgId,
		UserId:      req.UserId,
		Permissions: req.Permissions,
	})
}

func (s *testServer) Writes() []testWrite {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]testWrite(nil), s.writes...)
}

func (s *testServer) Queries() []ReadQuery {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]ReadQuery(nil), s.queries...)
}

func (s *testServer) Deletes() []DeleteQuery {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]DeleteQuery(nil), s.deletes...)
}

func newTestClient(t *testing.T, s *testServer, fn func(*ClientCfg)) *Client {
	cfg := ClientCfg{
		URI:    s.URL,
		Bucket: "metrics",
		Org:    "exograd",
		Token:  testToken,
	}

	if fn != nil {
		fn(&cfg)
	}

	c, err := NewClient(cfg)
	require.NoError(t, err)

	t.Cleanup(c.Terminate)

	return c
}

func TestClientOrgId(t *testing.T) {
	assert := assert.New(t)

	s := newTestServer(t)

	c := newTestClient(t, s, nil)
	assert.Equal("o1", c.OrgId())
	assert.Equal("o1", c.WithBucket("other").OrgId())
	assert.Equal("other", c.WithBucket("other").Bucket())
	assert.Equal("metrics", c.Bucket())

	c = newTestClient(t, s, func(cfg *ClientCfg) {
		cfg.SkipOrgIdResolution = true
	})
	assert.Equal("", c.OrgId())

	c = newTestClient(t, s, func(cfg *ClientCfg) {
		cfg.OrgId = "preset"
	})
	assert.Equal("preset", c.OrgId())

	_, err := NewClient(ClientCfg{
		URI:    s.URL,
		Bucket: "metrics",
		Org:    "unknown",
		Token:  testToken,
	})
	if assert.Error(err) {
		var influxErr *Error
		if assert.True(errors.As(err, &influxErr)) {
			assert.Equal(ErrorKindSyntax, influxErr.Kind)
			assert.Equal("No organization found", influxErr.Message)
		}
	}

	_, err = NewClient(ClientCfg{
		URI:    s.URL,
		Bucket: "metrics",
		Org:    "exograd",
		Token:  "invalid",
	})
	assert.True(errors.Is(err, ErrSyntax))
}

func TestClientInvalidCfg(t *testing.T) {
	assert := assert.New(t)

	_, err := NewClient(ClientCfg{Bucket: "metrics"})
	assert.Error(err)

	_, err = NewClient(ClientCfg{
		URI:    "localhost",
		Bucket: "metrics",
		Org:    "exograd",
	})
	assert.Error(err)

	_, err = NewClient(ClientCfg{
		Bucket:    "metrics",
		Org:       "exograd",
		Precision: Precision(42),
	})
	assert.Error(err)

	_, err = NewClient(ClientCfg{
		Bucket:  "metrics",
		Org:     "exograd",
		Timeout: -1,
	})
	assert.Error(err)
}

func TestClientTimeout(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(5, HTTPClientCfg(&ClientCfg{Timeout: 5}).Timeout)

	s := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(10 * time.Second):
			}

			w.WriteHeader(204)
		}))
	t.Cleanup(s.Close)

	c, err := NewClient(ClientCfg{
		URI:     s.URL,
		Bucket:  "metrics",
		Org:     "exograd",
		OrgId:   "o1",
		Timeout: 1,
	})
	require.NoError(t, err)
	t.Cleanup(c.Terminate)

	start := time.Now()
	err = c.Ping(context.Background())
	assert.True(errors.Is(err, ErrCommunication), err)
	assert.Less(time.Since(start), 5*time.Second)
}

func TestClientWritePoints(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, nil)

	ctx := context.Background()

	ps := Points{
		NewPointWithTimestamp("temp", 1700000000).
			AddStringTag("host", "serverA,01").
			AddField("value", Float(23.5)),
		NewPointWithTimestamp("temp", 1700000001).
			AddStringTag("host", "serverB").
			AddField("value", Integer(21)),
	}

	require.NoError(c.WritePoints(ctx, ps, WriteOptions{}))
	require.NoError(c.WritePoint(ctx, ps[0], WriteOptions{
		Precision:       PrecisionMilliseconds,
		RetentionPolicy: "autogen",
	}))
	require.NoError(c.WritePoints(ctx, nil, WriteOptions{}))

	writes := s.Writes()
	require.Len(writes, 2)

	assert.Equal(map[string]string{
		"bucket":    "metrics",
		"org":       "exograd",
		"precision": "s",
	}, writes[0].Query)
	assert.Equal("temp,host=serverA\\,01 value=23.5 1700000000\n"+
		"temp,host=serverB value=21i 1700000001", writes[0].Body)

	assert.Equal("ms", writes[1].Query["precision"])
	assert.Equal("autogen", writes[1].Query["rp"])
}

func TestClientWriteErrors(t *testing.T) {
	assert := assert.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, nil)

	ctx := context.Background()
	p := NewPoint("m").AddField("a", Integer(1))

	err := c.WithBucket("missing").WritePoint(ctx, p, WriteOptions{})
	assert.True(errors.Is(err, ErrDatabaseDoesNotExist), err)
	assert.EqualError(err, `bucket "missing" not found`)

	err = c.WritePoint(ctx, p, WriteOptions{RetentionPolicy: "missing"})
	assert.True(errors.Is(err, ErrRetentionPolicyDoesNotExist), err)
	assert.EqualError(err, "retention policy not found: missing")

	c2 := c.WithBucket("metrics")
	c2.Cfg.Token = "invalid"
	err = c2.WritePoint(ctx, p, WriteOptions{})
	assert.True(errors.Is(err, ErrInvalidCredentials), err)

	err = c.WritePoint(ctx, NewPoint("m"), WriteOptions{})
	assert.Error(err)

	err = c.WritePoint(ctx, p, WriteOptions{Precision: Precision(42)})
	assert.Error(err)

	assert.Empty(s.Writes())
}

func TestClientWriteGZip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, func(cfg *ClientCfg) {
		cfg.GZip = true
	})

	p := NewPoint("m").AddField("a", String("compressed"))
	require.NoError(c.WritePoint(context.Background(), p, WriteOptions{}))

	writes := s.Writes()
	require.Len(writes, 1)
	assert.Equal("gzip", writes[0].ContentEncoding)
	assert.Equal(`m a="compressed"`, writes[0].Body)
}

func TestClientCommunicationError(t *testing.T) {
	assert := assert.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, nil)

	s.Close()

	err := c.WritePoint(context.Background(),
		NewPoint("m").AddField("a", Integer(1)), WriteOptions{})
	assert.True(errors.Is(err, ErrCommunication), err)

	var influxErr *Error
	if assert.True(errors.As(err, &influxErr)) {
		assert.Equal(0, influxErr.Status)
		assert.NotNil(influxErr.Err)
	}
}

func TestClientQuery(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, nil)

	ctx := context.Background()

	data, err := c.Query(ctx, ReadQuery{Query: `from(bucket: "metrics")`})
	require.NoError(err)
	assert.Contains(string(data), ",_result,0,42")

	queries := s.Queries()
	require.Len(queries, 1)
	assert.Equal(QueryTypeFlux, queries[0].Type)

	_, err = c.Query(ctx, ReadQuery{})
	if assert.True(errors.Is(err, ErrUnknown), err) {
		assert.EqualError(err, "no flux query to serialize")
	}

	_, err = c.Query(ctx, ReadQuery{Query: "invalid"})
	assert.True(errors.Is(err, ErrSyntax), err)
	assert.EqualError(err, "compilation failed")
}

func TestClientDropMeasurement(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, nil)

	start := dtime.FromTime(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	stop := dtime.FromTime(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))

	err := c.DropMeasurement(context.Background(), `cpu "load"`, start, stop)
	require.NoError(err)

	deletes := s.Deletes()
	require.Len(deletes, 1)
	assert.Equal(`_measurement="cpu \"load\""`, deletes[0].Predicate)
	assert.True(start.Time().Equal(deletes[0].Start.Time()))
	assert.True(stop.Time().Equal(deletes[0].Stop.Time()))
}

func TestClientDatabases(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, nil)

	ctx := context.Background()

	require.NoError(c.CreateDatabase(ctx, "events"))

	id, err := c.BucketId(ctx, "events")
	require.NoError(err)
	assert.Equal("bevents", id)

	err = c.CreateDatabase(ctx, "events")
	assert.True(errors.Is(err, ErrSyntax), err)
	assert.EqualError(err, "bucket with name events already exists")

	require.NoError(c.DropDatabase(ctx, "events"))

	_, err = c.BucketId(ctx, "events")
	assert.EqualError(err, "No bucket found")

	err = c.DropDatabase(ctx, "events")
	assert.True(errors.Is(err, ErrSyntax), err)
}

func TestClientPing(t *testing.T) {
	assert := assert.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, nil)

	ctx := context.Background()

	assert.NoError(c.Ping(ctx))

	version, err := c.Version(ctx)
	if assert.NoError(err) {
		assert.Equal("v2.7.1", version)
	}
}

func TestClientUsers(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, nil)

	ctx := context.Background()

	user, err := c.CreateUser(ctx, "bob", UserStatusActive)
	require.NoError(err)
	assert.Equal("ubob", user.Id)
	assert.Equal(UserStatusActive, user.Status)

	_, err = c.CreateUser(ctx, "", UserStatusActive)
	assert.True(errors.Is(err, ErrSyntax), err)

	users, err := c.ListUsers(ctx)
	require.NoError(err)
	if assert.Len(users, 1) {
		assert.Equal("bob", users[0].Name)
	}

	auth, err := c.CreateAuthorization(ctx, AuthorizationRequest{
		UserId: user.Id,
		Permissions: []*Permission{
			{
				Action:   PermissionActionWrite,
				Resource: Resource{Type: ResourceTypeBuckets, Id: "b1"},
			},
		},
	})
	require.NoError(err)
	assert.Equal("new-token", auth.Token)
	assert.Equal("o1", auth.OrgId)
	assert.Equal(UserStatusActive, auth.Status)

	_, err = c.CreateAuthorization(ctx, AuthorizationRequest{})
	assert.EqualError(err, "permissions are required")

	require.NoError(c.DeleteUser(ctx, user.Id))

	err = c.DeleteUser(ctx, user.Id)
	assert.True(errors.Is(err, ErrSyntax), err)
	assert.EqualError(err, "user not found")
}

func TestClientBatching(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, func(cfg *ClientCfg) {
		cfg.BatchSize = 2
		cfg.FlushInterval = 3600
		cfg.Hostname = "h1"
		cfg.Tags = map[string]string{"env": "test"}
	})

	c.Start()

	c.EnqueuePoint(NewPointWithTimestamp("m", 1).AddField("a", Integer(1)))
	c.EnqueuePoint(NewPoint(""))

	assert.Equal(1, c.QueueLength())

	p := NewPointWithTimestamp("m", 2).
		AddStringTag("host", "h2").
		AddField("a", Integer(2))
	c.EnqueuePoint(p)

	require.Eventually(func() bool {
		return len(s.Writes()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	c.EnqueuePoints(Points{
		NewPointWithTimestamp("m", 3).AddField("a", Integer(3)),
	})

	c.Stop()

	writes := s.Writes()
	require.Len(writes, 2)
	assert.Equal("m,env=test,host=h1 a=1i 1\nm,host=h2,env=test a=2i 2",
		writes[0].Body)
	assert.Equal("m,env=test,host=h1 a=3i 3", writes[1].Body)

	assert.Len(p.Tags, 1)
}

func TestClientStop(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestServer(t)
	c := newTestClient(t, s, func(cfg *ClientCfg) {
		cfg.FlushInterval = 3600
	})

	c.Start()

	c.EnqueuePoint(NewPointWithTimestamp("m", 1).AddField("a", Integer(1)))

	assert.NotPanics(c.Stop)
	assert.NotPanics(c.Stop)

	require.Len(s.Writes(), 1)

	c.EnqueuePoint(NewPointWithTimestamp("m", 2).AddField("a", Integer(2)))
	assert.Equal(0, c.QueueLength())

	writes := s.Writes()
	require.Len(writes, 2)
	assert.Equal("m a=2i 2", writes[1].Body)

	c2 := newTestClient(t, s, nil)
	c2.EnqueuePoint(NewPointWithTimestamp("m", 3).AddField("a", Integer(3)))
	c2.Stop()

	writes = s.Writes()
	require.Len(writes, 3)
	assert.Equal("m a=3i 3", writes[2].Body)
}
