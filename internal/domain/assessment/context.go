package assessment

import (
	"math"
	"strings"
	"time"
)

// Geolocation represents a resolved coordinate pair with an optional
// ISO 3166-1 alpha-2 country code.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country,omitempty"`
}

// Valid reports whether the coordinates are finite and in range.
func (g Geolocation) Valid() bool {
	if math.IsNaN(g.Latitude) || math.IsInf(g.Latitude, 0) {
		return false
	}
	if math.IsNaN(g.Longitude) || math.IsInf(g.Longitude, 0) {
		return false
	}
	return g.Latitude >= -90 && g.Latitude <= 90 &&
		g.Longitude >= -180 && g.Longitude <= 180
}

// DeviceAttributes holds compromise-indicator flags reported by the client.
type DeviceAttributes struct {
	Emulated      bool `json:"emulated"`
	Rooted        bool `json:"rooted"`
	DeveloperMode bool `json:"developer_mode"`
}

// Anomalous reports whether any compromise indicator is set.
func (d DeviceAttributes) Anomalous() bool {
	return d.Emulated || d.Rooted || d.DeveloperMode
}

// Context is the normalized input to one risk evaluation. It is built once
// by the context builder and treated as immutable afterwards; detectors only
// read it.
type Context struct {
	UserID   string `json:"user_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	AppID    string `json:"app_id,omitempty"`

	IP        string            `json:"ip,omitempty"`
	DeviceID  string            `json:"device_id,omitempty"`
	Device    *DeviceAttributes `json:"device,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`

	Geo               *Geolocation `json:"geolocation,omitempty"`
	PreviousGeo       *Geolocation `json:"previous_geolocation,omitempty"`
	PreviousTimestamp *time.Time   `json:"previous_timestamp,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	MethodCode   string `json:"method_code,omitempty"`
	MethodType   string `json:"method_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`

	FailedAttempts int    `json:"failed_attempts,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`

	// Attributes carries free-form ambient metadata merged from the caller.
	// Sanitized strips secret-like keys before the context is embedded in
	// an Assessment.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// CacheKey builds the deterministic composite cache key for the context.
// Absent components are omitted rather than null-padded so keys stay stable
// across partially populated contexts.
func (c *Context) CacheKey() string {
	var b strings.Builder
	appendKeyPart(&b, "u", c.UserID)
	appendKeyPart(&b, "ip", c.IP)
	appendKeyPart(&b, "d", c.DeviceID)
	appendKeyPart(&b, "m", c.MethodCode)
	appendKeyPart(&b, "r", c.ResourceID)
	return b.String()
}

func appendKeyPart(b *strings.Builder, prefix, value string) {
	if value == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('|')
	}
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(value)
}

// secretKeyMarkers are substrings that mark an attribute key as sensitive.
var secretKeyMarkers = []string{"password", "pin", "secret", "credential", "token"}

// Sanitized returns a copy of the context with secret-like attribute keys
// stripped, safe to embed in an Assessment handed to audit collaborators.
func (c Context) Sanitized() Context {
	if len(c.Attributes) == 0 {
		return c
	}
	clean := make(map[string]string, len(c.Attributes))
	for k, v := range c.Attributes {
		if isSecretKey(k) {
			continue
		}
		clean[k] = v
	}
	c.Attributes = clean
	return c
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
