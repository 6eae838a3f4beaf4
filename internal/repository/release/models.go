package release

import (
	"time"

	"gorm.io/gorm"

	domain "github.com/oshokin/update-server/internal/domain/release"
)

// applicationModel is the applications table row.
type applicationModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255;not null"`
	CreatedAt time.Time
}

// TableName pins the table name.
func (applicationModel) TableName() string {
	return "applications"
}

func (m *applicationModel) toDomain() *domain.Application {
	return &domain.Application{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

// channelModel is the channels table row; names are unique per application.
type channelModel struct {
	ID            string `gorm:"primaryKey;size:36"`
	ApplicationID string `gorm:"size:64;not null;uniqueIndex:idx_channels_application_name,priority:1"`
	Name          string `gorm:"size:64;not null;uniqueIndex:idx_channels_application_name,priority:2"`
	CreatedAt     time.Time
}

// TableName pins the table name.
func (channelModel) TableName() string {
	return "channels"
}

func (m *channelModel) toDomain() *domain.Channel {
	return &domain.Channel{
		ID:            m.ID,
		ApplicationID: m.ApplicationID,
		Name:          m.Name,
		CreatedAt:     m.CreatedAt,
	}
}

// releaseModel is the releases table row. The unique index keeps retracted
// rows, so a retracted version can never be published again in its scope.
type releaseModel struct {
	ID                string `gorm:"primaryKey;size:36"`
	ApplicationID     string `gorm:"size:64;not null;uniqueIndex:idx_releases_scope_version,priority:1"`
	Channel           string `gorm:"size:64;not null;uniqueIndex:idx_releases_scope_version,priority:2"`
	Platform          string `gorm:"size:16;not null;uniqueIndex:idx_releases_scope_version,priority:3"`
	Version           string `gorm:"size:128;not null;uniqueIndex:idx_releases_scope_version,priority:4"`
	ArtifactRef       string `gorm:"size:1024;not null"`
	Checksum          string `gorm:"size:64;not null"`
	Signature         string `gorm:"type:text"`
	RolloutPercentage int    `gorm:"not null"`
	PromotedAt        *time.Time
	CreatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName pins the table name.
func (releaseModel) TableName() string {
	return "releases"
}

func releaseFromDomain(r *domain.Release) *releaseModel {
	return &releaseModel{
		ID:                r.ID,
		ApplicationID:     r.Scope.ApplicationID,
		Channel:           r.Scope.Channel,
		Platform:          r.Scope.Platform.String(),
		Version:           r.Version,
		ArtifactRef:       r.ArtifactRef,
		Checksum:          r.Checksum,
		Signature:         r.Signature,
		RolloutPercentage: r.RolloutPercentage,
		PromotedAt:        r.PromotedAt,
		CreatedAt:         r.CreatedAt,
	}
}

func (m *releaseModel) toDomain() *domain.Release {
	var promotedAt *time.Time
	if m.PromotedAt != nil {
		value := m.PromotedAt.UTC()
		promotedAt = &value
	}

	return &domain.Release{
		ID: m.ID,
		Scope: domain.Scope{
			ApplicationID: m.ApplicationID,
			Channel:       m.Channel,
			Platform:      domain.Platform(m.Platform),
		},
		Version:           m.Version,
		ArtifactRef:       m.ArtifactRef,
		Checksum:          m.Checksum,
		Signature:         m.Signature,
		RolloutPercentage: m.RolloutPercentage,
		PromotedAt:        promotedAt,
		CreatedAt:         m.CreatedAt.UTC(),
	}
}
