package risk

import (
	"fmt"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/config"
)

// DefaultDetectors builds the standard detector list for the given tuning.
// Order is stable; it determines factor ordering in assessments.
func DefaultDetectors(cfg config.RiskConfig) []Detector {
	return []Detector{
		&denyListDetector{},
		&anonymizerDetector{},
		&unusualLocationDetector{radiusKm: cfg.UnusualLocationRadiusKm},
		&highRiskCountryDetector{},
		&unknownDeviceDetector{},
		&deviceAnomalyDetector{},
		&unusualTimeDetector{windowHours: cfg.UnusualTimeWindowHours},
		&behavioralAnomalyDetector{
			radiusKm:    cfg.UnusualLocationRadiusKm,
			windowHours: cfg.UnusualTimeWindowHours,
		},
		&impossibleTravelDetector{maxSpeedKmh: cfg.MaxTravelSpeedKmh},
	}
}

// denyListDetector flags IPs present on the maintained deny list.
type denyListDetector struct{}

func (d *denyListDetector) Name() string { return DetectorKnownBadIP }

func (d *denyListDetector) Evaluate(ctx *assessment.Context, deps Deps) DetectorResult {
	if ctx.IP == "" || deps.Reputation == nil {
		return notApplicable()
	}
	if !deps.Reputation.IsDenied(ctx.IP) {
		return cleared()
	}
	return fired(ScoreKnownBadIP, "ip present on deny list", map[string]interface{}{
		"ip": ctx.IP,
	})
}

// anonymizerDetector flags IPs belonging to known anonymizing networks
// (Tor exits, VPN and proxy egress points from the reputation source).
type anonymizerDetector struct{}

func (d *anonymizerDetector) Name() string { return DetectorAnonymizerIP }

func (d *anonymizerDetector) Evaluate(ctx *assessment.Context, deps Deps) DetectorResult {
	if ctx.IP == "" || deps.Reputation == nil {
		return notApplicable()
	}
	if !deps.Reputation.IsAnonymizer(ctx.IP) {
		return cleared()
	}
	return fired(ScoreAnonymizerIP, "ip belongs to an anonymizing network", map[string]interface{}{
		"ip": ctx.IP,
	})
}

// unusualLocationDetector compares the current location against the user's
// recorded history by proximity, not exact match. No history counts as
// unusual: absence of evidence is evidence of novelty.
type unusualLocationDetector struct {
	radiusKm float64
}

func (d *unusualLocationDetector) Name() string { return DetectorUnusualLocation }

func (d *unusualLocationDetector) Evaluate(ctx *assessment.Context, deps Deps) DetectorResult {
	if ctx.Geo == nil || !ctx.Geo.Valid() {
		return notApplicable()
	}

	profile, _ := lookupProfile(ctx, deps)
	nearest, ok := nearestLocationKm(profile, *ctx.Geo)
	if !ok {
		return fired(ScoreUnusualLocation, "no location history for user", nil)
	}
	if nearest <= d.radiusKm {
		return cleared()
	}
	return fired(ScoreUnusualLocation,
		fmt.Sprintf("nearest known location %.0f km away", nearest),
		map[string]interface{}{
			"nearest_km": nearest,
			"radius_km":  d.radiusKm,
		})
}

// highRiskCountryDetector flags configured high-risk countries,
// independent of user history.
type highRiskCountryDetector struct{}

func (d *highRiskCountryDetector) Name() string { return DetectorHighRiskCountry }

func (d *highRiskCountryDetector) Evaluate(ctx *assessment.Context, deps Deps) DetectorResult {
	if ctx.Geo == nil || ctx.Geo.Country == "" || deps.Reputation == nil {
		return notApplicable()
	}
	if !deps.Reputation.IsHighRiskCountry(ctx.Geo.Country) {
		return cleared()
	}
	return fired(ScoreHighRiskCountry, "geolocation in high-risk country", map[string]interface{}{
		"country": ctx.Geo.Country,
	})
}

// unknownDeviceDetector flags (user, device) pairs without an earned-trust
// record.
type unknownDeviceDetector struct{}

func (d *unknownDeviceDetector) Name() string { return DetectorUnknownDevice }

func (d *unknownDeviceDetector) Evaluate(ctx *assessment.Context, deps Deps) DetectorResult {
	if ctx.UserID == "" || ctx.DeviceID == "" || deps.Devices == nil {
		return notApplicable()
	}
	if deps.Devices.IsKnown(ctx.UserID, ctx.DeviceID) {
		return cleared()
	}
	return fired(ScoreUnknownDevice, "device not known for user", map[string]interface{}{
		"device_id": ctx.DeviceID,
	})
}

// deviceAnomalyDetector flags compromise indicators reported by the client.
type deviceAnomalyDetector struct{}

func (d *deviceAnomalyDetector) Name() string { return DetectorDeviceAnomaly }

func (d *deviceAnomalyDetector) Evaluate(ctx *assessment.Context, deps Deps) DetectorResult {
	if ctx.Device == nil {
		return notApplicable()
	}
	if !ctx.Device.Anomalous() {
		return cleared()
	}
	return fired(ScoreDeviceAnomaly, "device reports compromise indicators", map[string]interface{}{
		"emulated":       ctx.Device.Emulated,
		"rooted":         ctx.Device.Rooted,
		"developer_mode": ctx.Device.DeveloperMode,
	})
}

// unusualTimeDetector checks the request time against the user's recorded
// time-of-use samples: a sample on the same day of week within the window
// makes the time usual. A coarse baseline, not statistical modeling.
type unusualTimeDetector struct {
	windowHours int
}

func (d *unusualTimeDetector) Name() string { return DetectorUnusualTime }

func (d *unusualTimeDetector) Evaluate(ctx *assessment.Context, deps Deps) DetectorResult {
	if ctx.Timestamp.IsZero() {
		return notApplicable()
	}

	profile, _ := lookupProfile(ctx, deps)
	if profile == nil || len(profile.TimeSamples) == 0 {
		return fired(ScoreUnusualTime, "no time-of-use history for user", nil)
	}
	if hasTimeSampleNear(profile, ctx.Timestamp.Hour(), int(ctx.Timestamp.Weekday()), d.windowHours) {
		return cleared()
	}
	return fired(ScoreUnusualTime,
		fmt.Sprintf("no recorded use within ±%dh on this day of week", d.windowHours),
		map[string]interface{}{
			"hour":        ctx.Timestamp.Hour(),
			"day_of_week": int(ctx.Timestamp.Weekday()),
		})
}

// behavioralAnomalyDetector rolls several weak signals into one explainable
// factor. It measures deviation from an established baseline, so it only
// applies once the user has a behavior profile; cold-start friction is the
// standalone detectors' job.
type behavioralAnomalyDetector struct {
	radiusKm    float64
	windowHours int
}

func (d *behavioralAnomalyDetector) Name() string { return DetectorBehavioralAnomaly }

func (d *behavioralAnomalyDetector) Evaluate(ctx *assessment.Context, deps Deps) DetectorResult {
	if ctx.UserID == "" || deps.Profiles == nil {
		return notApplicable()
	}
	profile, ok := deps.Profiles.Get(ctx.UserID)
	if !ok {
		return notApplicable()
	}

	var sub float64
	signals := map[string]interface{}{}

	if ctx.Geo != nil && ctx.Geo.Valid() {
		if nearest, ok := nearestLocationKm(profile, *ctx.Geo); !ok || nearest > d.radiusKm {
			sub += BehavioralLocationWeight
			signals["unusual_location"] = true
		}
	}
	if !ctx.Timestamp.IsZero() {
		if len(profile.TimeSamples) == 0 ||
			!hasTimeSampleNear(profile, ctx.Timestamp.Hour(), int(ctx.Timestamp.Weekday()), d.windowHours) {
			sub += BehavioralTimeWeight
			signals["unusual_time"] = true
		}
	}
	if ctx.DeviceID != "" && deps.Devices != nil && !deps.Devices.IsKnown(ctx.UserID, ctx.DeviceID) {
		sub += BehavioralDeviceWeight
		signals["unknown_device"] = true
	}
	if ctx.FailedAttempts >= InteractionFailureFloor {
		sub += BehavioralInteractionWeight
		signals["abnormal_interaction"] = true
	}

	if sub < BehavioralTriggerFloor {
		return cleared()
	}
	signals["sub_score"] = sub
	return fired(sub, "combined behavioral signals exceed threshold", signals)
}

// impossibleTravelDetector flags location changes whose implied speed
// exceeds feasible transport.
type impossibleTravelDetector struct {
	maxSpeedKmh float64
}

func (d *impossibleTravelDetector) Name() string { return DetectorImpossibleTravel }

func (d *impossibleTravelDetector) Evaluate(ctx *assessment.Context, deps Deps) DetectorResult {
	if ctx.Geo == nil || !ctx.Geo.Valid() ||
		ctx.PreviousGeo == nil || !ctx.PreviousGeo.Valid() ||
		ctx.PreviousTimestamp == nil || ctx.Timestamp.IsZero() {
		return notApplicable()
	}

	elapsedHours := ctx.Timestamp.Sub(*ctx.PreviousTimestamp).Hours()
	if elapsedHours <= 0 {
		return notApplicable()
	}

	distance := assessment.DistanceKm(
		ctx.PreviousGeo.Latitude, ctx.PreviousGeo.Longitude,
		ctx.Geo.Latitude, ctx.Geo.Longitude,
	)
	speed := distance / elapsedHours
	if speed <= d.maxSpeedKmh {
		return cleared()
	}
	return fired(ScoreImpossibleTravel,
		fmt.Sprintf("implied travel speed %.0f km/h exceeds %.0f km/h", speed, d.maxSpeedKmh),
		map[string]interface{}{
			"distance_km":   distance,
			"elapsed_hours": elapsedHours,
			"speed_kmh":     speed,
		})
}

// lookupProfile fetches the user's profile when a user is identified.
// A missing user or profile yields nil, which the "unusual" detectors
// treat as no history.
func lookupProfile(ctx *assessment.Context, deps Deps) (*assessment.BehaviorProfile, bool) {
	if ctx.UserID == "" || deps.Profiles == nil {
		return nil, false
	}
	return deps.Profiles.Get(ctx.UserID)
}

func nearestLocationKm(profile *assessment.BehaviorProfile, geo assessment.Geolocation) (float64, bool) {
	if profile == nil || len(profile.Locations) == 0 {
		return 0, false
	}
	nearest := -1.0
	for _, loc := range profile.Locations {
		d := assessment.DistanceKm(loc.Latitude, loc.Longitude, geo.Latitude, geo.Longitude)
		if nearest < 0 || d < nearest {
			nearest = d
		}
	}
	return nearest, true
}

func hasTimeSampleNear(profile *assessment.BehaviorProfile, hour, dayOfWeek, windowHours int) bool {
	for _, s := range profile.TimeSamples {
		if s.DayOfWeek != dayOfWeek {
			continue
		}
		diff := hour - s.Hour
		if diff < 0 {
			diff = -diff
		}
		// Hours wrap around midnight.
		if 24-diff < diff {
			diff = 24 - diff
		}
		if diff <= windowHours {
			return true
		}
	}
	return false
}
