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
)

const versionHeader = "X-Influxdb-Version"

// UnknownVersion is returned by Version when the server does not advertise
// its version.
const UnknownVersion = "unknown"

func (c *Client) FetchOrgId(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("org", c.Cfg.Org)

	res, err := c.sendRequest(ctx, "GET", "/api/v2/orgs", params, nil, nil)
	if err != nil {
		return "", err
	}

	return OrgIdFromResponse(res.Status, res.Body)
}

func (c *Client) BucketId(ctx context.Context, name string) (string, error) {
	params := url.Values{}
	params.Set("name", name)

	res, err := c.sendRequest(ctx, "GET", "/api/v2/buckets", params, nil, nil)
	if err != nil {
		return "", err
	}

	return BucketIdFromResponse(res.Status, res.Body)
}

// CreateDatabase creates a bucket with infinite retention in the
// organization of the client.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	bucket := Bucket{
		Name:  name,
		OrgId: c.orgId,
		RetentionRules: []RetentionRule{
			{Type: "expire"},
		},
		SchemaType: "implicit",
	}

	res, err := c.sendJSONRequest(ctx, "POST", "/api/v2/buckets", nil,
		&bucket)
	if err != nil {
		return err
	}

	return Classify(EndpointCreateDatabase, res.Status, res.Body)
}

func (c *Client) DropDatabase(ctx context.Context, name string) error {
	id, err := c.BucketId(ctx, name)
	if err != nil {
		return err
	}

	res, err := c.sendRequest(ctx, "DELETE", "/api/v2/buckets/"+id, nil,
		nil, nil)
	if err != nil {
		return err
	}

	return Classify(EndpointDropDatabase, res.Status, res.Body)
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ping(ctx)
	return err
}

func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.ping(ctx)
	if err != nil {
		return "", err
	}

	version := res.Header.Get(versionHeader)
	if version == "" {
		version = UnknownVersion
	}

	return version, nil
}

func (c *Client) ping(ctx context.Context) (*response, error) {
	res, err := c.sendRequest(ctx, "GET", "/ping", nil, nil, nil)
	if err != nil {
		return nil, err
	}

	if err := Classify(EndpointPing, res.Status, res.Body); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CreateUser(ctx context.Context, name string, status UserStatus) (*User, error) {
	user := User{
		Name:   name,
		Status: status,
	}

	res, err := c.sendJSONRequest(ctx, "POST", "/api/v2/users", nil, &user)
	if err != nil {
		return nil, err
	}

	if err := Classify(EndpointCreateUser, res.Status, res.Body); err != nil {
		return nil, err
	}

	var createdUser User
	if err := decodeResponse(res, &createdUser); err != nil {
		return nil, err
	}

	return &createdUser, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]*User, error) {
	res, err := c.sendRequest(ctx, "GET", "/api/v2/users", nil, nil, nil)
	if err != nil {
		return nil, err
	}

	if err := Classify(EndpointListUsers, res.Status, res.Body); err != nil {
		return nil, err
	}

	var users Users
	if err := decodeResponse(res, &users); err != nil {
		return nil, err
	}

	return users.Users, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	res, err := c.sendRequest(ctx, "DELETE", "/api/v2/users/"+id, nil,
		nil, nil)
	if err != nil {
		return err
	}

	return Classify(EndpointDeleteUser, res.Status, res.Body)
}

// CreateAuthorization creates an authorization; the organization of the
// client is used if the request does not contain one.
func (c *Client) CreateAuthorization(ctx context.Context, req AuthorizationRequest) (*Authorization, error) {
	if req.OrgId == "" {
		req.OrgId = c.orgId
	}

	if req.Status == "" {
		req.Status = UserStatusActive
	}

	res, err := c.sendJSONRequest(ctx, "POST", "/api/v2/authorizations", nil,
		&req)
	if err != nil {
		return nil, err
	}

	if err := Classify(EndpointCreateAuthorization, res.Status,
		res.Body); err != nil {
		return nil, err
	}

	var auth Authorization
	if err := decodeResponse(res, &auth); err != nil {
		return nil, err
	}

	return &auth, nil
}
