package rest

import (
	"time"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
	"github.com/davidleathers/auth-risk-engine/internal/service/risk"
)

// AssessmentRequest is the POST /api/v1/risk/assessments payload. Every
// field is optional: detectors whose inputs are absent simply skip.
type AssessmentRequest struct {
	UserID   string `json:"user_id,omitempty" validate:"omitempty,max=256"`
	TenantID string `json:"tenant_id,omitempty" validate:"omitempty,max=256"`
	AppID    string `json:"app_id,omitempty" validate:"omitempty,max=256"`

	IP        string `json:"ip,omitempty" validate:"omitempty,ip"`
	DeviceID  string `json:"device_id,omitempty" validate:"omitempty,max=256"`
	UserAgent string `json:"user_agent,omitempty" validate:"omitempty,max=1024"`

	Geolocation *GeolocationDTO      `json:"geolocation,omitempty"`
	Device      *DeviceAttributesDTO `json:"device,omitempty"`

	MethodCode   string `json:"method_code,omitempty" validate:"omitempty,max=128"`
	MethodType   string `json:"method_type,omitempty" validate:"omitempty,max=128"`
	ResourceID   string `json:"resource_id,omitempty" validate:"omitempty,max=256"`
	ResourceType string `json:"resource_type,omitempty" validate:"omitempty,max=128"`

	Session    *SessionContextDTO `json:"session,omitempty"`
	Attributes map[string]string  `json:"attributes,omitempty" validate:"omitempty,max=32"`
}

// GeolocationDTO carries resolved coordinates from the caller's geo-IP
// pipeline.
type GeolocationDTO struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Country   string  `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}

// DeviceAttributesDTO carries client-reported device posture.
type DeviceAttributesDTO struct {
	Emulated      bool `json:"emulated,omitempty"`
	Rooted        bool `json:"rooted,omitempty"`
	DeveloperMode bool `json:"developer_mode,omitempty"`
}

// SessionContextDTO carries the ambient session state the authentication
// flow already tracks.
type SessionContextDTO struct {
	PreviousGeolocation *GeolocationDTO `json:"previous_geolocation,omitempty"`
	PreviousTimestamp   *time.Time      `json:"previous_timestamp,omitempty"`
	LastSuccessfulLogin *time.Time      `json:"last_successful_login,omitempty"`
	FailedAttempts      int             `json:"failed_attempts,omitempty" validate:"min=0"`
	SessionID           string          `json:"session_id,omitempty" validate:"omitempty,max=256"`
	AuthenticationType  string          `json:"authentication_type,omitempty" validate:"omitempty,max=128"`
	Timestamp           time.Time       `json:"timestamp,omitempty"`
}

// AssessmentResponse is the wire form of an assessment.
type AssessmentResponse struct {
	ID        string                `json:"id"`
	Timestamp time.Time             `json:"timestamp"`
	Score     float64               `json:"score"`
	Level     string                `json:"level"`
	Factors   []string              `json:"factors"`
	Details   map[string]FindingDTO `json:"details,omitempty"`
}

// FindingDTO is one detector's contribution.
type FindingDTO struct {
	Score    float64                `json:"score"`
	Reason   string                 `json:"reason"`
	Evidence map[string]interface{} `json:"evidence,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *AssessmentRequest) toServiceRequest() (risk.Request, risk.Ambient) {
	req := risk.Request{
		UserID:       r.UserID,
		TenantID:     r.TenantID,
		AppID:        r.AppID,
		IP:           r.IP,
		DeviceID:     r.DeviceID,
		UserAgent:    r.UserAgent,
		Geolocation:  r.Geolocation.toDomain(),
		MethodCode:   r.MethodCode,
		MethodType:   r.MethodType,
		ResourceID:   r.ResourceID,
		ResourceType: r.ResourceType,
		Attributes:   r.Attributes,
	}
	if r.Device != nil {
		req.DeviceAttributes = &assessment.DeviceAttributes{
			Emulated:      r.Device.Emulated,
			Rooted:        r.Device.Rooted,
			DeveloperMode: r.Device.DeveloperMode,
		}
	}

	var amb risk.Ambient
	if r.Session != nil {
		amb = risk.Ambient{
			PreviousGeolocation: r.Session.PreviousGeolocation.toDomain(),
			PreviousTimestamp:   r.Session.PreviousTimestamp,
			LastSuccessfulLogin: r.Session.LastSuccessfulLogin,
			FailedAttempts:      r.Session.FailedAttempts,
			SessionID:           r.Session.SessionID,
			AuthenticationType:  r.Session.AuthenticationType,
			Timestamp:           r.Session.Timestamp,
		}
	}
	return req, amb
}

func (g *GeolocationDTO) toDomain() *assessment.Geolocation {
	if g == nil {
		return nil
	}
	return &assessment.Geolocation{
		Latitude:  g.Latitude,
		Longitude: g.Longitude,
		Country:   g.Country,
	}
}

func toAssessmentResponse(a *assessment.Assessment) AssessmentResponse {
	resp := AssessmentResponse{
		ID:        a.ID.String(),
		Timestamp: a.Timestamp,
		Score:     a.Score,
		Level:     a.Level.String(),
		Factors:   a.Factors,
	}
	if resp.Factors == nil {
		resp.Factors = []string{}
	}
	if len(a.Details) > 0 {
		resp.Details = make(map[string]FindingDTO, len(a.Details))
		for name, f := range a.Details {
			resp.Details[name] = FindingDTO{
				Score:    f.Score,
				Reason:   f.Reason,
				Evidence: f.Evidence,
			}
		}
	}
	return resp
}
