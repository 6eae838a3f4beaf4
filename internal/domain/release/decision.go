package release

// Query is a single client update check.
type Query struct {
	// ClientID is the stable identity of the installation.
	ClientID string
	// CurrentVersion is the version the client runs now.
	CurrentVersion string
	// Scope selects the release track.
	Scope Scope
}

// Reason explains how a Decision was reached.
type Reason string

// Decision reasons.
const (
	ReasonUpToDate         Reason = "up_to_date"
	ReasonRolloutGate      Reason = "rollout_gate"
	ReasonPromotedFallback Reason = "promoted_fallback"
	ReasonNotEligible      Reason = "not_eligible"
	ReasonSignatureMissing Reason = "signature_missing"
)

// Decision is the answer to a Query: either no update or an offered release.
type Decision struct {
	// Release is nil when no update is offered.
	Release *Release
	// ArtifactLocation is the download URL of the offered artifact.
	ArtifactLocation string
	// Signature is the detached signature of the offered artifact.
	Signature string
	// Checksum is the hex SHA-256 of the offered artifact.
	Checksum string
	// Reason explains the outcome; it is not part of the wire contract.
	Reason Reason
}

// NoUpdate builds a negative decision.
func NoUpdate(reason Reason) Decision {
	return Decision{Reason: reason}
}

// UpdateAvailable reports whether the decision offers a release.
func (d Decision) UpdateAvailable() bool {
	return d.Release != nil
}
