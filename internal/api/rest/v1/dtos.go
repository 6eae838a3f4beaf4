package v1

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domain "github.com/oshokin/update-server/internal/domain/release"
)

// Field limits shared by request DTOs.
const (
	maxIdentifierLength = 64
	maxNameLength       = 128
	maxSecretLength     = 4096
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

// LoginRequest exchanges credentials for a session token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the request shape.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, maxSecretLength)),
	)
}

// LoginResponse carries an issued session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateApplicationRequest registers an application.
type CreateApplicationRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks the request shape. Identifier syntax is enforced by the registry.
func (r CreateApplicationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, validation.Length(1, maxIdentifierLength)),
		validation.Field(&r.Name, validation.Length(0, maxNameLength)),
	)
}

// CreateChannelRequest adds a channel to an application.
type CreateChannelRequest struct {
	Name string `json:"name"`
}

// Validate checks the request shape.
func (r CreateChannelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxIdentifierLength)),
	)
}

// PromoteRequest raises the rollout percentage of a release.
type PromoteRequest struct {
	Percentage *int `json:"percentage"`
}

// Validate checks the request shape.
func (r PromoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Percentage,
			validation.NotNil,
			validation.Min(0),
			validation.Max(domain.FullRollout),
		),
	)
}

// RegisterReleaseForm holds the non-file fields of a release upload.
type RegisterReleaseForm struct {
	Platform  string
	Version   string
	Signature string
}

// Validate checks the form shape.
func (f RegisterReleaseForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Platform, validation.Required, validation.Length(1, maxIdentifierLength)),
		validation.Field(&f.Version, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&f.Signature, validation.Length(0, maxSecretLength)),
	)
}

// ApplicationResponse describes an application.
type ApplicationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ChannelResponse describes a channel.
type ChannelResponse struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReleaseResponse describes a release.
type ReleaseResponse struct {
	ID                string     `json:"id"`
	ApplicationID     string     `json:"application"`
	Channel           string     `json:"channel"`
	Platform          string     `json:"platform"`
	Version           string     `json:"version"`
	ArtifactRef       string     `json:"artifact_ref"`
	Checksum          string     `json:"checksum"`
	Signature         string     `json:"signature,omitempty"`
	RolloutPercentage int        `json:"rollout_percentage"`
	PromotedAt        *time.Time `json:"promoted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// UpdateResponse is the positive answer of an update check.
type UpdateResponse struct {
	UpdateAvailable  bool   `json:"update_available"`
	Version          string `json:"version"`
	ArtifactLocation string `json:"artifact_location"`
	Signature        string `json:"signature"`
	Checksum         string `json:"checksum"`
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func toApplicationResponse(app *domain.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:        app.ID,
		Name:      app.Name,
		CreatedAt: app.CreatedAt,
	}
}

func toChannelResponse(channel *domain.Channel) ChannelResponse {
	return ChannelResponse{
		ID:            channel.ID,
		ApplicationID: channel.ApplicationID,
		Name:          channel.Name,
		CreatedAt:     channel.CreatedAt,
	}
}

func toReleaseResponse(rel *domain.Release) ReleaseResponse {
	return ReleaseResponse{
		ID:                rel.ID,
		ApplicationID:     rel.Scope.ApplicationID,
		Channel:           rel.Scope.Channel,
		Platform:          rel.Scope.Platform.String(),
		Version:           rel.Version,
		ArtifactRef:       rel.ArtifactRef,
		Checksum:          rel.Checksum,
		Signature:         rel.Signature,
		RolloutPercentage: rel.RolloutPercentage,
		PromotedAt:        rel.PromotedAt,
		CreatedAt:         rel.CreatedAt,
	}
}
