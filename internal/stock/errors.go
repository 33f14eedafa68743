package stock

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError: entrada malformada (cantidad o denominación no positiva,
// lista vacía). Siempre corregible por el caller; nunca se reintenta.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ErrContention: no se pudo tomar el lock de las filas dentro de la ventana
// permitida. Reintentable por el caller con backoff; no corrompe datos porque
// no hay escrituras parciales antes del lock.
var ErrContention = errors.New("stock en uso por otra operación, reintente")

// ErrMovementNotFound: el movimiento referido no existe.
var ErrMovementNotFound = errors.New("movimiento no encontrado")

// Postgres corta la espera de lock con SQLSTATE 55P03 (lock_not_available).
func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}
