// Package postgres provides PostgreSQL implementations of the store
// interfaces using database/sql over the pgx stdlib driver.
package postgres

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes.
const (
	pgUniqueViolationCode     = "23505"
	pgForeignKeyViolationCode = "23503"
)

// isUniqueViolation checks if the given error is a PostgreSQL unique
// constraint violation, such as a duplicate (chain, address) pair.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}

// isForeignKeyViolation checks if the given error is a PostgreSQL foreign
// key violation, such as referencing a user that does not exist.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode
}

// bigIntFromNumeric parses a numeric(78,0) column read as text into a
// big.Int. Wide integers never travel through float64.
func bigIntFromNumeric(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", raw)
	}
	return value, nil
}

// numericFromBigInt renders a big.Int for a numeric(78,0) column. A nil
// value maps to SQL NULL.
func numericFromBigInt(value *big.Int) any {
	if value == nil {
		return nil
	}
	return value.String()
}
