// Package store defines the persistence interfaces and sentinel errors used
// by the service layer. Implementations live in internal/platform/postgres.
package store
