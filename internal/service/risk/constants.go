package risk

// Detector names. These are the factor identifiers surfaced in
// Assessment.Factors and Details, consumed by audit collaborators.
const (
	DetectorKnownBadIP        = "known_bad_ip"
	DetectorAnonymizerIP      = "anonymizer_ip"
	DetectorUnusualLocation   = "unusual_location"
	DetectorHighRiskCountry   = "high_risk_country"
	DetectorUnknownDevice     = "unknown_device"
	DetectorDeviceAnomaly     = "device_anomaly"
	DetectorUnusualTime       = "unusual_time"
	DetectorBehavioralAnomaly = "behavioral_anomaly"
	DetectorImpossibleTravel  = "impossible_travel"

	// FactorEvaluationError is the sole factor of a fail-safe fallback.
	FactorEvaluationError = "evaluation_error"
)

// Score contributions per detector.
const (
	ScoreKnownBadIP       = 75.0
	ScoreAnonymizerIP     = 40.0
	ScoreUnusualLocation  = 50.0
	ScoreHighRiskCountry  = 30.0
	ScoreUnknownDevice    = 40.0
	ScoreDeviceAnomaly    = 30.0
	ScoreUnusualTime      = 25.0
	ScoreImpossibleTravel = 80.0
)

// Behavioral-anomaly aggregation: weak signals are rolled into one
// explainable sub-score that only contributes once it reaches the floor.
const (
	BehavioralLocationWeight    = 30.0
	BehavioralTimeWeight        = 20.0
	BehavioralDeviceWeight      = 25.0
	BehavioralInteractionWeight = 15.0
	BehavioralTriggerFloor      = 40.0

	// InteractionFailureFloor is the failed-attempt count that flags an
	// abnormal interaction pattern.
	InteractionFailureFloor = 3
)

// Fail-safe fallback: extra friction on internal fault, never fail open.
const (
	FallbackScore = 50.0
)
