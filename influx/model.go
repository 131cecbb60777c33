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
	"fmt"
	"strings"

	"github.com/exograd/go-influx/dtime"
)

type Links map[string]string

type Org struct {
	Id          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status,omitempty"`
	CreatedAt   *dtime.Timestamp `json:"createdAt,omitempty"`
	UpdatedAt   *dtime.Timestamp `json:"updatedAt,omitempty"`
	Links       Links            `json:"links,omitempty"`
}

type Orgs struct {
	Orgs  []*Org `json:"orgs"`
	Links Links  `json:"links,omitempty"`
}

type RetentionRule struct {
	EverySeconds              int64  `json:"everySeconds"`
	ShardGroupDurationSeconds int64  `json:"shardGroupDurationSeconds"`
	Type                      string `json:"type"`
}

type Label struct {
	Id         string            `json:"id"`
	OrgId      string            `json:"orgID"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
}

type Bucket struct {
	Id             string           `json:"id,omitempty"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	OrgId          string           `json:"orgID"`
	RetentionRules []RetentionRule  `json:"retentionRules"`
	RP             string           `json:"rp,omitempty"`
	SchemaType     string           `json:"schemaType,omitempty"`
	Type           string           `json:"type,omitempty"`
	Labels         []*Label         `json:"labels,omitempty"`
	CreatedAt      *dtime.Timestamp `json:"createdAt,omitempty"`
	UpdatedAt      *dtime.Timestamp `json:"updatedAt,omitempty"`
	Links          Links            `json:"links,omitempty"`
}

type Buckets struct {
	Buckets []*Bucket `json:"buckets"`
	Links   Links     `json:"links,omitempty"`
}

type QueryType string

const QueryTypeFlux QueryType = "flux"

type QueryFile struct {
	Type    string        `json:"type,omitempty"`
	Name    string        `json:"name,omitempty"`
	Package interface{}   `json:"package,omitempty"`
	Imports []interface{} `json:"imports,omitempty"`
	Body    []interface{} `json:"body,omitempty"`
}

type QueryDialect struct {
	Header         *bool    `json:"header,omitempty"`
	Delimiter      string   `json:"delimiter,omitempty"`
	Annotations    []string `json:"annotations,omitempty"`
	CommentPrefix  string   `json:"commentPrefix,omitempty"`
	DateTimeFormat string   `json:"dateTimeFormat,omitempty"`
}

// ReadQuery is the body of a query request. The query itself is never
// interpreted by the client.
type ReadQuery struct {
	Query   string           `json:"query"`
	Type    QueryType        `json:"type,omitempty"`
	Extern  *QueryFile       `json:"extern,omitempty"`
	Dialect *QueryDialect    `json:"dialect,omitempty"`
	Now     *dtime.Timestamp `json:"now,omitempty"`
}

type DeleteQuery struct {
	Predicate string          `json:"predicate"`
	Start     dtime.Timestamp `json:"start"`
	Stop      dtime.Timestamp `json:"stop"`
}

var predicateStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func MeasurementPredicate(measurement string) string {
	return fmt.Sprintf(`_measurement="%s"`,
		predicateStringEscaper.Replace(measurement))
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

type User struct {
	Id     string     `json:"id,omitempty"`
	Name   string     `json:"name"`
	Status UserStatus `json:"status,omitempty"`
	Links  Links      `json:"links,omitempty"`
}

type Users struct {
	Users []*User `json:"users"`
	Links Links   `json:"links,omitempty"`
}

type PermissionAction string

const (
	PermissionActionRead  PermissionAction = "read"
	PermissionActionWrite PermissionAction = "write"
)

type ResourceType string

const (
	ResourceTypeAuthorizations ResourceType = "authorizations"
	ResourceTypeBuckets        ResourceType = "buckets"
	ResourceTypeDashboards     ResourceType = "dashboards"
	ResourceTypeOrgs           ResourceType = "orgs"
	ResourceTypeSources        ResourceType = "sources"
	ResourceTypeTasks          ResourceType = "tasks"
	ResourceTypeTelegrafs      ResourceType = "telegrafs"
	ResourceTypeUsers          ResourceType = "users"
	ResourceTypeVariables      ResourceType = "variables"
	ResourceTypeScrapers       ResourceType = "scrapers"
	ResourceTypeSecrets        ResourceType = "secrets"
	ResourceTypeLabels         ResourceType = "labels"
	ResourceTypeViews          ResourceType = "views"
	ResourceTypeDocuments      ResourceType = "documents"
	ResourceTypeChecks         ResourceType = "checks"
	ResourceTypeDBRPs          ResourceType = "dbrp"
	ResourceTypeNotebooks      ResourceType = "notebooks"
	ResourceTypeAnnotations    ResourceType = "annotations"
	ResourceTypeRemotes        ResourceType = "remotes"
	ResourceTypeReplications   ResourceType = "replications"
	ResourceTypeInstance       ResourceType = "instance"
	ResourceTypeFlows          ResourceType = "flows"
	ResourceTypeFunctions      ResourceType = "functions"
	ResourceTypeSubscriptions  ResourceType = "subscriptions"

	ResourceTypeNotificationRules     ResourceType = "notificationRules"
	ResourceTypeNotificationEndpoints ResourceType = "notificationEndpoints"
)

type Resource struct {
	Type  ResourceType `json:"type"`
	Id    string       `json:"id,omitempty"`
	Name  string       `json:"name,omitempty"`
	OrgId string       `json:"orgID,omitempty"`
	Org   string       `json:"org,omitempty"`
}

type Permission struct {
	Action   PermissionAction `json:"action"`
	Resource Resource         `json:"resource"`
}

type AuthorizationRequest struct {
	Description string        `json:"description,omitempty"`
	OrgId       string        `json:"orgID"`
	UserId      string        `json:"userID,omitempty"`
	Status      UserStatus    `json:"status,omitempty"`
	Permissions []*Permission `json:"permissions"`
}

type Authorization struct {
	Id          string           `json:"id"`
	Token       string           `json:"token"`
	Description string           `json:"description,omitempty"`
	Status      UserStatus       `json:"status"`
	Org         string           `json:"org,omitempty"`
	OrgId       string           `json:"orgID"`
	User        string           `json:"user,omitempty"`
	UserId      string           `json:"userID,omitempty"`
	Permissions []*Permission    `json:"permissions"`
	CreatedAt   *dtime.Timestamp `json:"createdAt,omitempty"`
	UpdatedAt   *dtime.Timestamp `json:"updatedAt,omitempty"`
	Links       Links            `json:"links,omitempty"`
}
