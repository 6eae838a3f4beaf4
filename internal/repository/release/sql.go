package release

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/oshokin/update-server/internal/domain/release"
)

// SQLRepository persists applications, channels and releases with gorm.
type SQLRepository struct {
	db *gorm.DB
}

// NewSQLRepository wraps an open connection.
func NewSQLRepository(db *gorm.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Ping checks the connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return backendError("get database instance", err)
	}

	if err = sqlDB.PingContext(ctx); err != nil {
		return backendError("ping database", err)
	}

	return nil
}

// CreateApplication inserts an application.
func (r *SQLRepository) CreateApplication(ctx context.Context, app *domain.Application) error {
	model := &applicationModel{
		ID:        app.ID,
		Name:      app.Name,
		CreatedAt: app.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateApplication, app.ID)
		}

		return backendError("create application", err)
	}

	return nil
}

// GetApplication returns one application.
func (r *SQLRepository) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	var model applicationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownApplication, id)
		}

		return nil, backendError("fetch application", err)
	}

	return model.toDomain(), nil
}

// ListApplications returns every application ordered by id.
func (r *SQLRepository) ListApplications(ctx context.Context) ([]*domain.Application, error) {
	var models []*applicationModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, backendError("list applications", err)
	}

	result := make([]*domain.Application, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}

	return result, nil
}

// CreateChannel inserts a channel.
func (r *SQLRepository) CreateChannel(ctx context.Context, channel *domain.Channel) error {
	model := &channelModel{
		ID:            channel.ID,
		ApplicationID: channel.ApplicationID,
		Name:          channel.Name,
		CreatedAt:     channel.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s/%s", domain.ErrDuplicateChannel, channel.ApplicationID, channel.Name)
		}

		return backendError("create channel", err)
	}

	return nil
}

// GetChannel returns the channel named name within an application.
func (r *SQLRepository) GetChannel(ctx context.Context, applicationID, name string) (*domain.Channel, error) {
	var model channelModel

	err := r.db.WithContext(ctx).
		Where("application_id = ? AND name = ?", applicationID, name).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrUnknownChannel, applicationID, name)
		}

		return nil, backendError("fetch channel", err)
	}

	return model.toDomain(), nil
}

// ListChannels returns the channels of an application ordered by name.
func (r *SQLRepository) ListChannels(ctx context.Context, applicationID string) ([]*domain.Channel, error) {
	var models []*channelModel

	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("name").
		Find(&models).Error
	if err != nil {
		return nil, backendError("list channels", err)
	}

	result := make([]*domain.Channel, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}

	return result, nil
}

// CreateRelease inserts a release.
func (r *SQLRepository) CreateRelease(ctx context.Context, rel *domain.Release) error {
	if err := r.db.WithContext(ctx).Create(releaseFromDomain(rel)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s in %s", domain.ErrDuplicateVersion, rel.Version, rel.Scope)
		}

		return backendError("create release", err)
	}

	return nil
}

// GetRelease returns a live release by id.
func (r *SQLRepository) GetRelease(ctx context.Context, id string) (*domain.Release, error) {
	var model releaseModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrReleaseNotFound, id)
		}

		return nil, backendError("fetch release", err)
	}

	return model.toDomain(), nil
}

// ListReleases returns the live releases of a scope in creation order.
func (r *SQLRepository) ListReleases(ctx context.Context, scope domain.Scope) ([]*domain.Release, error) {
	var models []*releaseModel

	err := r.db.WithContext(ctx).
		Where("application_id = ? AND channel = ? AND platform = ?",
			scope.ApplicationID, scope.Channel, scope.Platform.String()).
		Order("created_at, id").
		Find(&models).Error
	if err != nil {
		return nil, backendError("list releases", err)
	}

	result := make([]*domain.Release, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}

	return result, nil
}

// HasReleases reports whether scope holds any release row, soft-deleted rows
// included.
func (r *SQLRepository) HasReleases(ctx context.Context, scope domain.Scope) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&releaseModel{}).
		Where("application_id = ? AND channel = ? AND platform = ?",
			scope.ApplicationID, scope.Channel, scope.Platform.String()).
		Count(&count).Error
	if err != nil {
		return false, backendError("count releases", err)
	}

	return count > 0, nil
}

// UpdateRollout raises the rollout percentage of a release in one conditional
// statement. It never lowers a percentage: when the stored value is already
// higher it fails with ErrInvalidPercentage. promotedAt is written only if the
// release was never fully promoted before.
func (r *SQLRepository) UpdateRollout(
	ctx context.Context,
	id string,
	percentage int,
	promotedAt *time.Time,
) (*domain.Release, error) {
	updates := map[string]any{"rollout_percentage": percentage}
	if promotedAt != nil {
		updates["promoted_at"] = gorm.Expr("COALESCE(promoted_at, ?)", *promotedAt)
	}

	result := r.db.WithContext(ctx).
		Model(&releaseModel{}).
		Where("id = ? AND rollout_percentage <= ?", id, percentage).
		Updates(updates)
	if result.Error != nil {
		return nil, backendError("update rollout", result.Error)
	}

	current, err := r.GetRelease(ctx, id)
	if err != nil {
		return nil, err
	}

	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %d is below current %d",
			domain.ErrInvalidPercentage, percentage, current.RolloutPercentage)
	}

	return current, nil
}

// DeleteRelease soft-deletes a release.
func (r *SQLRepository) DeleteRelease(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&releaseModel{})
	if result.Error != nil {
		return backendError("delete release", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrReleaseNotFound, id)
	}

	return nil
}

// backendError wraps a driver failure as ErrBackendUnavailable.
func backendError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrBackendUnavailable, op, err)
}
