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
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/exograd/go-influx/djson"
)

type Endpoint string

const (
	EndpointWrite               Endpoint = "write"
	EndpointQuery               Endpoint = "query"
	EndpointDropMeasurement     Endpoint = "drop_measurement"
	EndpointCreateDatabase      Endpoint = "create_database"
	EndpointDropDatabase        Endpoint = "drop_database"
	EndpointOrgId               Endpoint = "org_id"
	EndpointBucketId            Endpoint = "bucket_id"
	EndpointPing                Endpoint = "ping"
	EndpointCreateUser          Endpoint = "create_user"
	EndpointListUsers           Endpoint = "list_users"
	EndpointDeleteUser          Endpoint = "delete_user"
	EndpointCreateAuthorization Endpoint = "create_authorization"
)

type messageSource int

const (
	messageSourceBody messageSource = iota
	messageSourceRawBody
	messageSourceStatus
	messageSourceText
)

type outcome struct {
	Kind   ErrorKind
	Source messageSource
	Text   string
}

type statusTable struct {
	Success  int
	Outcomes map[int]outcome
	Default  outcome
}

const invalidCredentialsMessage = "Invalid authentication credentials."

var (
	syntaxErrorOutcome = outcome{Kind: ErrorKindSyntax}

	invalidCredentialsOutcome = outcome{
		Kind:   ErrorKindInvalidCredentials,
		Source: messageSourceText,
		Text:   invalidCredentialsMessage,
	}
)

func adminStatusTable(success int) statusTable {
	return statusTable{
		Success: success,
		Outcomes: map[int]outcome{
			400: syntaxErrorOutcome,
		},
		Default: syntaxErrorOutcome,
	}
}

var statusTables = map[Endpoint]statusTable{
	EndpointWrite: {
		Success: 204,
		Outcomes: map[int]outcome{
			400: syntaxErrorOutcome,
			401: invalidCredentialsOutcome,
			403: invalidCredentialsOutcome,
			404: {Kind: ErrorKindDatabaseDoesNotExist},
			500: {
				Kind:   ErrorKindRetentionPolicyDoesNotExist,
				Source: messageSourceRawBody,
			},
		},
		Default: outcome{Kind: ErrorKindUnknown, Source: messageSourceStatus},
	},

	EndpointQuery: {
		Success: 200,
		Outcomes: map[int]outcome{
			400: syntaxErrorOutcome,
			401: invalidCredentialsOutcome,
			403: invalidCredentialsOutcome,
		},
		Default: outcome{Kind: ErrorKindUnknown, Source: messageSourceRawBody},
	},

	EndpointDropMeasurement: {
		Success: 204,
		Outcomes: map[int]outcome{
			400: syntaxErrorOutcome,
			401: invalidCredentialsOutcome,
			403: invalidCredentialsOutcome,
		},
		Default: outcome{Kind: ErrorKindUnknown, Source: messageSourceStatus},
	},

	EndpointCreateDatabase: {
		Success: 201,
		Outcomes: map[int]outcome{
			422: syntaxErrorOutcome,
		},
		Default: syntaxErrorOutcome,
	},

	EndpointDropDatabase: {
		Success: 204,
		Outcomes: map[int]outcome{
			404: syntaxErrorOutcome,
		},
		Default: syntaxErrorOutcome,
	},

	EndpointOrgId:    {Success: 200, Default: syntaxErrorOutcome},
	EndpointBucketId: {Success: 200, Default: syntaxErrorOutcome},
	EndpointPing:     {Success: 204, Default: syntaxErrorOutcome},

	EndpointCreateUser:          adminStatusTable(201),
	EndpointListUsers:           adminStatusTable(200),
	EndpointDeleteUser:          adminStatusTable(204),
	EndpointCreateAuthorization: adminStatusTable(201),
}

var Endpoints []Endpoint

func init() {
	for endpoint := range statusTables {
		Endpoints = append(Endpoints, endpoint)
	}

	sort.Slice(Endpoints, func(i, j int) bool {
		return Endpoints[i] < Endpoints[j]
	})
}

// Classify interprets the status code and body of a response sent by a
// specific endpoint. It returns nil if the request succeeded, and an *Error
// value otherwise.
func Classify(endpoint Endpoint, status int, body []byte) error {
	table, found := statusTables[endpoint]
	if !found {
		return &Error{
			Kind:    ErrorKindUnknown,
			Message: fmt.Sprintf("unknown endpoint %q", endpoint),
			Status:  status,
		}
	}

	if status == table.Success {
		return nil
	}

	o, found := table.Outcomes[status]
	if !found {
		o = table.Default
	}

	var msg string

	switch o.Source {
	case messageSourceBody:
		msg = ErrorBodyMessage(status, body)
	case messageSourceRawBody:
		msg = string(body)
		if msg == "" {
			msg = statusMessage(status)
		}
	case messageSourceStatus:
		msg = fmt.Sprintf("received status code %d", status)
	case messageSourceText:
		msg = o.Text
	}

	return &Error{
		Kind:    o.Kind,
		Message: msg,
		Status:  status,
	}
}

// ErrorBodyMessage extracts the message of an error response body. Bodies
// which are not json objects with a message are returned as they are.
func ErrorBodyMessage(status int, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return statusMessage(status)
	}

	value, err := djson.Decode(body)
	if err != nil {
		return string(body)
	}

	msg, found := djson.ObjectString(value, "message", "error")
	if !found {
		return string(body)
	}

	return msg
}

func statusMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("%d %s", status, text)
	}

	return fmt.Sprintf("status %d", status)
}

func OrgIdFromResponse(status int, body []byte) (string, error) {
	if err := Classify(EndpointOrgId, status, body); err != nil {
		return "", err
	}

	var orgs Orgs
	if err := json.Unmarshal(body, &orgs); err != nil {
		return "", &Error{
			Kind:    ErrorKindSyntax,
			Message: fmt.Sprintf("cannot decode organizations: %v", err),
			Status:  status,
		}
	}

	if len(orgs.Orgs) == 0 {
		return "", &Error{
			Kind:    ErrorKindSyntax,
			Message: "No organization found",
			Status:  status,
		}
	}

	return orgs.Orgs[0].Id, nil
}

func BucketIdFromResponse(status int, body []byte) (string, error) {
	if err := Classify(EndpointBucketId, status, body); err != nil {
		return "", err
	}

	var buckets Buckets
	if err := json.Unmarshal(body, &buckets); err != nil {
		return "", &Error{
			Kind:    ErrorKindSyntax,
			Message: fmt.Sprintf("cannot decode buckets: %v", err),
			Status:  status,
		}
	}

	if len(buckets.Buckets) == 0 {
		return "", &Error{
			Kind:    ErrorKindSyntax,
			Message: "No bucket found",
			Status:  status,
		}
	}

	return buckets.Buckets[0].Id, nil
}
