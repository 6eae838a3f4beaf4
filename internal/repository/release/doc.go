// Package release implements the SQL Database Adapter for applications,
// channels and releases on top of gorm.
//
// SQLRepository satisfies the registry's Store contract. Driver failures
// and deadline expiry surface wrapped in domain.ErrBackendUnavailable, while
// missing rows and unique-index conflicts map onto the domain sentinels.
// Retracted releases are soft-deleted and never returned.
package release
