package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/domain"
)

// Pagination bounds.
const (
	defaultLimit = 20
	maxLimit     = 100
)

// violation builds a single-field RequestError.
func violation(field, message string) error {
	return &shared.RequestError{
		Message: "request validation failed",
		Violations: []shared.FieldViolation{
			{Field: field, Message: message},
		},
	}
}

// parsePage reads limit/offset with defaults 20/0 and bounds limit 1..100,
// offset >= 0.
func parsePage(r *http.Request) (limit, offset int, err error) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, violation("limit", "must be an integer")
		}
		if limit < 1 || limit > maxLimit {
			return 0, 0, violation("limit", "must be between 1 and 100")
		}
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, violation("offset", "must be an integer")
		}
		if offset < 0 {
			return 0, 0, violation("offset", "must be zero or positive")
		}
	}

	return limit, offset, nil
}

// parseChainIDQuery reads a chainId query parameter. A missing parameter is
// an error only when required.
func parseChainIDQuery(r *http.Request, required bool) (int64, error) {
	raw := r.URL.Query().Get("chainId")
	if raw == "" {
		if required {
			return 0, violation("chainId", "is required")
		}
		return 0, nil
	}

	chainID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || chainID <= 0 {
		return 0, violation("chainId", "must be a positive integer")
	}
	return chainID, nil
}

// parseChainIDParam reads a chainId path segment.
func parseChainIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "chainId")
	chainID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || chainID <= 0 {
		return 0, violation("chainId", "must be a positive integer")
	}
	return chainID, nil
}

// parseStatus reads the status filter, defaulting to all.
func parseStatus(r *http.Request) (domain.PositionStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return domain.PositionStatusAll, nil
	}

	status := domain.PositionStatus(raw)
	if !status.Valid() {
		return "", violation("status", "must be one of: active, closed, all")
	}
	return status, nil
}

// sortFields whitelists position sort keys.
var sortFields = map[string]bool{
	"createdAt": true,
	"openedAt":  true,
	"liquidity": true,
}

// parseSort reads sortBy/sortDirection, defaulting to createdAt descending.
func parseSort(r *http.Request) (sortBy string, desc bool, err error) {
	sortBy = "createdAt"
	if raw := r.URL.Query().Get("sortBy"); raw != "" {
		if !sortFields[raw] {
			return "", false, violation("sortBy", "must be one of: createdAt, openedAt, liquidity")
		}
		sortBy = raw
	}

	desc = true
	if raw := r.URL.Query().Get("sortDirection"); raw != "" {
		switch raw {
		case "asc":
			desc = false
		case "desc":
			desc = true
		default:
			return "", false, violation("sortDirection", "must be one of: asc, desc")
		}
	}

	return sortBy, desc, nil
}

// parseProtocols reads a comma-separated protocols filter.
func parseProtocols(r *http.Request) ([]domain.Protocol, error) {
	raw := r.URL.Query().Get("protocols")
	if raw == "" {
		return nil, nil
	}

	var protocols []domain.Protocol
	for _, part := range strings.Split(raw, ",") {
		protocol := domain.Protocol(strings.TrimSpace(part))
		if !protocol.Valid() {
			return nil, violation("protocols", "must be a comma-separated list of: uniswapv3, orca")
		}
		protocols = append(protocols, protocol)
	}
	return protocols, nil
}

// parseBoolQuery reads an optional boolean query parameter.
func parseBoolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, violation(name, "must be a boolean")
	}
	return value, nil
}
