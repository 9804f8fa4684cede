// Package mockapi defines the core data model for user-defined mock APIs:
// projects, endpoint definitions, field schemas, filter conditions, and the
// stored submission records produced by POST-style endpoints.
package mockapi

import (
	"strings"
	"time"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldObject  FieldType = "object"
	FieldArray   FieldType = "array"
	FieldImage   FieldType = "image"
	FieldVideo   FieldType = "video"
	FieldAudio   FieldType = "audio"
	FieldFile    FieldType = "file"
)

// IsFileKind reports whether the field type carries binary content that goes
// through the upload pipeline rather than the field validator.
func (t FieldType) IsFileKind() bool {
	switch t {
	case FieldImage, FieldVideo, FieldAudio, FieldFile:
		return true
	}
	return false
}

// FieldDef describes one declared request field on an endpoint.
type FieldDef struct {
	// Name is the field key expected in the request payload
	Name string `json:"name" yaml:"name"`

	// Type is the declared field type
	Type FieldType `json:"type" yaml:"type"`

	// Required indicates the field must be present and non-empty
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Description is optional documentation shown to API consumers
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// NestedFields describes object members (only for type "object")
	NestedFields []FieldDef `json:"nestedFields,omitempty" yaml:"nestedFields,omitempty"`

	// ArrayItemType is the element type (only for type "array")
	ArrayItemType FieldType `json:"arrayItemType,omitempty" yaml:"arrayItemType,omitempty"`
}

// AuthRequirement is the per-endpoint authentication override. The zero value
// (empty string) and AuthInherit both defer to the project-level setting, so
// the inherit branch is an explicit case rather than a nil check.
type AuthRequirement string

const (
	AuthInherit     AuthRequirement = "inherit"
	AuthRequired    AuthRequirement = "required"
	AuthNotRequired AuthRequirement = "notRequired"
)

// AuthSettings holds a project's token authentication configuration.
// Token comparison is a flat equality check against the stored secret.
type AuthSettings struct {
	// Enabled turns token checking on for endpoints that inherit
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Token is the per-project shared secret
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// HeaderName is the request header carrying the token (default: Authorization)
	HeaderName string `json:"headerName,omitempty" yaml:"headerName,omitempty"`

	// TokenPrefix is stripped from the header value (default: Bearer)
	TokenPrefix string `json:"tokenPrefix,omitempty" yaml:"tokenPrefix,omitempty"`
}

// DefaultAuthHeader is used when AuthSettings.HeaderName is empty.
const DefaultAuthHeader = "Authorization"

// DefaultTokenPrefix is used when AuthSettings.TokenPrefix is empty.
const DefaultTokenPrefix = "Bearer"

// Header returns the configured header name or the default.
func (a AuthSettings) Header() string {
	if a.HeaderName != "" {
		return a.HeaderName
	}
	return DefaultAuthHeader
}

// Prefix returns the configured token prefix or the default.
func (a AuthSettings) Prefix() string {
	if a.TokenPrefix != "" {
		return a.TokenPrefix
	}
	return DefaultTokenPrefix
}

// Operator is a filter condition operator.
type Operator string

const (
	OpEquals     Operator = "="
	OpNotEquals  Operator = "!="
	OpGreater    Operator = ">"
	OpLess       Operator = "<"
	OpGreaterEq  Operator = ">="
	OpLessEq     Operator = "<="
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
)

// Condition is one filter clause applied by a data-view endpoint. All
// conditions on an endpoint are combined with AND.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// DataSourceMode selects how a data-view endpoint shapes its output.
type DataSourceMode string

const (
	// ModeFull returns whole stored payloads
	ModeFull DataSourceMode = "full"
	// ModeField projects only the selected fields
	ModeField DataSourceMode = "field"
	// ModeAggregator computes one scalar per selected field
	ModeAggregator DataSourceMode = "aggregator"
)

// Aggregator is the aggregate function for ModeAggregator endpoints.
type Aggregator string

const (
	AggCount Aggregator = "count"
	AggSum   Aggregator = "sum"
	AggAvg   Aggregator = "avg"
	AggMin   Aggregator = "min"
	AggMax   Aggregator = "max"
	// AggTotal is an alias for sum kept for configs written against the
	// original field naming.
	AggTotal Aggregator = "total"
)

// PaginationConfig controls list-shaped data-view responses.
type PaginationConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// DefaultLimit is the page size when the caller does not request one
	DefaultLimit int `json:"defaultLimit,omitempty" yaml:"defaultLimit,omitempty"`

	// MaxLimit caps the requested page size
	MaxLimit int `json:"maxLimit,omitempty" yaml:"maxLimit,omitempty"`
}

// Endpoint is one mock route definition within a project.
type Endpoint struct {
	// ID is a unique identifier for the endpoint
	ID string `json:"id" yaml:"id"`

	// Path is the route path below the project base path (e.g. "/users")
	Path string `json:"path" yaml:"path"`

	// Method is the HTTP method this endpoint answers
	Method string `json:"method" yaml:"method"`

	// Response is the static response template for endpoints without a
	// data source or field schema
	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	// StatusCode is the status for static responses (default 200)
	StatusCode int `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`

	// Fields is the declared request schema for POST-style endpoints
	Fields []FieldDef `json:"fields,omitempty" yaml:"fields,omitempty"`

	// RequiresAuth overrides the project auth setting ("" = inherit)
	RequiresAuth AuthRequirement `json:"requiresAuth,omitempty" yaml:"requiresAuth,omitempty"`

	// DataSource references a sibling POST endpoint by ID whose stored
	// submissions this endpoint reads
	DataSource string `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`

	// DataSourceMode shapes the derived view (default: full)
	DataSourceMode DataSourceMode `json:"dataSourceMode,omitempty" yaml:"dataSourceMode,omitempty"`

	// SelectedFields are the projected/aggregated field names
	SelectedFields []string `json:"selectedFields,omitempty" yaml:"selectedFields,omitempty"`

	// Aggregator is the aggregate function for aggregator mode
	Aggregator Aggregator `json:"aggregator,omitempty" yaml:"aggregator,omitempty"`

	// Conditions filter the data source's submissions (AND semantics)
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Pagination controls list-shaped responses
	Pagination PaginationConfig `json:"pagination,omitempty" yaml:"pagination,omitempty"`
}

// HasSchema reports whether the endpoint declares request fields.
func (e *Endpoint) HasSchema() bool {
	return len(e.Fields) > 0
}

// IsDataView reports whether the endpoint computes a derived view over a
// sibling endpoint's submissions.
func (e *Endpoint) IsDataView() bool {
	return e.DataSource != ""
}

// Mode returns the effective data source mode, defaulting to full.
func (e *Endpoint) Mode() DataSourceMode {
	if e.DataSourceMode == "" {
		return ModeFull
	}
	return e.DataSourceMode
}

// EffectiveAuth resolves the tri-state override against the project setting.
func (e *Endpoint) EffectiveAuth(project *Project) bool {
	switch e.RequiresAuth {
	case AuthRequired:
		return true
	case AuthNotRequired:
		return false
	}
	return project.Authentication.Enabled
}

// Project is the owning namespace for a group of mock endpoints. Its URL slug
// is derived from the display name, and all its endpoints hang below
// /<slug><basePath>.
type Project struct {
	// ID is a unique identifier for the project
	ID string `json:"id" yaml:"id"`

	// Name is the display name; the URL slug is derived from it
	Name string `json:"name" yaml:"name"`

	// BasePath is the path prefix shared by all endpoints (e.g. "/api/v1")
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty"`

	// OwnerID is the account that owns this project and is charged for
	// its traffic
	OwnerID string `json:"ownerId" yaml:"ownerId"`

	// Authentication is the project-level token configuration
	Authentication AuthSettings `json:"authentication,omitempty" yaml:"authentication,omitempty"`

	// Endpoints are matched in declaration order
	Endpoints []Endpoint `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}

// Slug returns the URL slug derived from the project name.
func (p *Project) Slug() string {
	return Slug(p.Name)
}

// EndpointByID returns the endpoint with the given ID, or nil.
func (p *Project) EndpointByID(id string) *Endpoint {
	for i := range p.Endpoints {
		if p.Endpoints[i].ID == id {
			return &p.Endpoints[i]
		}
	}
	return nil
}

// Slug lowercases a name and collapses runs of non-alphanumeric characters
// into single hyphens, trimming any leading/trailing hyphen.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ============================================================================
// Stored submissions
// ============================================================================

// UploadedFile is the metadata returned by the object-storage collaborator
// for one uploaded file part, stored alongside the submission payload.
type UploadedFile struct {
	FieldName    string    `json:"fieldName"`
	FileType     string    `json:"fileType"`
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url"`
	SecureURL    string    `json:"secureUrl"`
	PublicID     string    `json:"publicId"`
	Format       string    `json:"format,omitempty"`
	ResourceType string    `json:"resourceType,omitempty"`
	FileSize     int64     `json:"fileSize"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// ToMap returns the metadata as a payload-embeddable map. This is the value
// stored under the file's field name in the submission payload.
func (f *UploadedFile) ToMap() map[string]any {
	return map[string]any{
		"fieldName":    f.FieldName,
		"fileType":     f.FileType,
		"fileName":     f.FileName,
		"originalName": f.OriginalName,
		"url":          f.URL,
		"secureUrl":    f.SecureURL,
		"publicId":     f.PublicID,
		"format":       f.Format,
		"resourceType": f.ResourceType,
		"fileSize":     f.FileSize,
		"uploadedAt":   f.UploadedAt.Format(time.RFC3339),
	}
}

// Submission is one stored record created by a POST-style endpoint
// invocation. Submissions are immutable once written.
type Submission struct {
	// ID is the generated record identifier
	ID string `json:"id"`

	// EndpointID and ProjectID reference the owning definitions by ID only
	EndpointID string `json:"endpointId"`
	ProjectID  string `json:"projectId"`

	// Data is the validated payload, with file fields replaced by their
	// upload metadata
	Data map[string]any `json:"data"`

	// Files holds upload metadata for any file parts in the request
	Files []UploadedFile `json:"files,omitempty"`

	// CreatedAt is when the submission was written
	CreatedAt time.Time `json:"createdAt"`
}

// ============================================================================
// Accounts and tiers
// ============================================================================

// Tier is an account class that parameterizes rate, daily, and storage caps.
type Tier string

const (
	TierFree     Tier = "free"
	TierPlus     Tier = "plus"
	TierPro      Tier = "pro"
	TierUltraPro Tier = "ultra-pro"
)

// Account is the quota subject owning one or more projects. The quota
// enforcer and persistence writer mutate its counters on every request.
type Account struct {
	// ID is a unique identifier for the account
	ID string `json:"id" yaml:"id"`

	// Tier selects the rate/daily/storage caps
	Tier Tier `json:"tier" yaml:"tier"`

	// LastRequestAt is the timestamp of the last allowed request,
	// used for per-second rate limiting
	LastRequestAt time.Time `json:"lastRequestAt,omitempty" yaml:"lastRequestAt,omitempty"`

	// LastRequestReset anchors the current 24h counting window
	LastRequestReset time.Time `json:"lastRequestReset,omitempty" yaml:"lastRequestReset,omitempty"`

	// DailyRequests maps a window anchor (unix milliseconds, as a string
	// key) to the request count within that window
	DailyRequests map[string]int `json:"dailyRequests,omitempty" yaml:"dailyRequests,omitempty"`

	// StorageUsage is the cumulative stored bytes across all projects
	StorageUsage int64 `json:"storageUsage,omitempty" yaml:"storageUsage,omitempty"`
}

// Clone returns a deep copy so stores can hand out accounts without sharing
// the DailyRequests map.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.DailyRequests != nil {
		cp.DailyRequests = make(map[string]int, len(a.DailyRequests))
		for k, v := range a.DailyRequests {
			cp.DailyRequests[k] = v
		}
	}
	return &cp
}
