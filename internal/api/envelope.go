package api

import "time"

// Meta accompanies every envelope. The timestamp is generated when the
// envelope is constructed, not when the request started.
type Meta map[string]any

// SuccessEnvelope is the standard success response shape.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Meta    Meta `json:"meta"`
}

// ErrorBody is the error payload inside an ErrorEnvelope.
type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// ErrorEnvelope is the standard error response shape.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
	Meta    Meta      `json:"meta"`
}

// Pagination describes the window a paginated response covers. HasMore is
// always derived from (total, limit, offset), never supplied by callers.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// PaginatedEnvelope is the standard paginated response shape.
type PaginatedEnvelope struct {
	Success    bool       `json:"success"`
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
	Meta       Meta       `json:"meta"`
}

// stampedMeta merges extra into a fresh Meta carrying the construction
// timestamp.
func stampedMeta(extra Meta) Meta {
	meta := Meta{"timestamp": time.Now().UTC().Format(time.RFC3339)}
	for k, v := range extra {
		meta[k] = v
	}
	return meta
}

// Success builds the standard success envelope.
func Success(data any, extra ...Meta) SuccessEnvelope {
	var merged Meta
	if len(extra) > 0 {
		merged = extra[0]
	}
	return SuccessEnvelope{
		Success: true,
		Data:    data,
		Meta:    stampedMeta(merged),
	}
}

// Error builds the standard error envelope.
func Error(code ErrorCode, message string, details any) ErrorEnvelope {
	return ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: stampedMeta(nil),
	}
}

// Paginated builds the standard paginated envelope. hasMore is derived:
// offset+limit < total, and always false for an empty page.
func Paginated[T any](items []T, total, limit, offset int, extra ...Meta) PaginatedEnvelope {
	if items == nil {
		items = []T{}
	}

	hasMore := offset+limit < total
	if len(items) == 0 {
		hasMore = false
	}

	var merged Meta
	if len(extra) > 0 {
		merged = extra[0]
	}

	return PaginatedEnvelope{
		Success: true,
		Data:    items,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: hasMore,
		},
		Meta: stampedMeta(merged),
	}
}
