package risk

import (
	"strings"
	"time"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
)

// Request carries the fields of the inbound authentication attempt.
type Request struct {
	UserID           string                        `json:"user_id,omitempty"`
	TenantID         string                        `json:"tenant_id,omitempty"`
	AppID            string                        `json:"app_id,omitempty"`
	IP               string                        `json:"ip,omitempty"`
	DeviceID         string                        `json:"device_id,omitempty"`
	DeviceAttributes *assessment.DeviceAttributes  `json:"device_attributes,omitempty"`
	UserAgent        string                        `json:"user_agent,omitempty"`
	Geolocation      *assessment.Geolocation       `json:"geolocation,omitempty"`
	MethodCode       string                        `json:"method_code,omitempty"`
	MethodType       string                        `json:"method_type,omitempty"`
	ResourceID       string                        `json:"resource_id,omitempty"`
	ResourceType     string                        `json:"resource_type,omitempty"`
	Attributes       map[string]string             `json:"attributes,omitempty"`
}

// Ambient carries session-scoped context the authentication flow already
// holds: prior-attempt history, session identifiers, correlation data.
type Ambient struct {
	PreviousGeolocation *assessment.Geolocation `json:"previous_geolocation,omitempty"`
	PreviousTimestamp   *time.Time              `json:"previous_timestamp,omitempty"`
	FailedAttempts      int                     `json:"failed_attempts,omitempty"`
	LastSuccessfulLogin *time.Time              `json:"last_successful_login,omitempty"`
	SessionID           string                  `json:"session_id,omitempty"`
	AuthenticationType  string                  `json:"authentication_type,omitempty"`
	CorrelationID       string                  `json:"correlation_id,omitempty"`
	Timestamp           time.Time               `json:"timestamp,omitempty"`
}

// ContextBuilder merges a request and its ambient context into one
// normalized, immutable assessment context.
type ContextBuilder struct {
	now func() time.Time
}

// NewContextBuilder creates a builder using the wall clock.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{now: time.Now}
}

// Build normalizes the inputs: the timestamp defaults to now, non-finite
// coordinates are dropped so downstream detectors simply skip, country
// codes are uppercased, and the previous timestamp falls back to the last
// successful login when the caller did not track it separately.
func (b *ContextBuilder) Build(req Request, amb Ambient) assessment.Context {
	ts := amb.Timestamp
	if ts.IsZero() {
		ts = b.now()
	}

	prevTS := amb.PreviousTimestamp
	if prevTS == nil && amb.LastSuccessfulLogin != nil {
		prevTS = amb.LastSuccessfulLogin
	}

	methodType := req.MethodType
	if methodType == "" {
		methodType = amb.AuthenticationType
	}

	ctx := assessment.Context{
		UserID:            req.UserID,
		TenantID:          req.TenantID,
		AppID:             req.AppID,
		IP:                req.IP,
		DeviceID:          req.DeviceID,
		Device:            req.DeviceAttributes,
		UserAgent:         req.UserAgent,
		Geo:               normalizeGeo(req.Geolocation),
		PreviousGeo:       normalizeGeo(amb.PreviousGeolocation),
		PreviousTimestamp: prevTS,
		Timestamp:         ts,
		MethodCode:        req.MethodCode,
		MethodType:        methodType,
		ResourceID:        req.ResourceID,
		ResourceType:      req.ResourceType,
		FailedAttempts:    amb.FailedAttempts,
		SessionID:         amb.SessionID,
		CorrelationID:     amb.CorrelationID,
	}

	if len(req.Attributes) > 0 {
		ctx.Attributes = make(map[string]string, len(req.Attributes))
		for k, v := range req.Attributes {
			ctx.Attributes[k] = v
		}
	}

	return ctx
}

// normalizeGeo drops invalid coordinates and uppercases the country code.
func normalizeGeo(geo *assessment.Geolocation) *assessment.Geolocation {
	if geo == nil || !geo.Valid() {
		return nil
	}
	normalized := *geo
	normalized.Country = strings.ToUpper(normalized.Country)
	return &normalized
}
