package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modubang/notify-api/internal/core"
	"github.com/modubang/notify-api/internal/domain/model"
	apperrors "github.com/modubang/notify-api/internal/errors"
)

// DirectoryRepo resolves recipients from the customers and partners tables.
// It returns raw matches in deterministic directory order; dedupe and
// empty-address filtering happen in the resolver service.
type DirectoryRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewDirectoryRepo creates a new DirectoryRepo with the given database connection.
func NewDirectoryRepo(db *sql.DB, cfg RepoConfig) *DirectoryRepo {
	return &DirectoryRepo{DB: db, logger: cfg.Logger}
}

// Resolve looks up recipients for the query. IDs, when present, take
// precedence over the status filter; unknown IDs are simply absent from the
// result.
func (r *DirectoryRepo) Resolve(ctx context.Context, q core.RecipientQuery) ([]model.Recipient, error) {
	table, err := directoryTable(q.TargetType)
	if err != nil {
		return nil, err
	}

	query, args := buildDirectoryQuery(table, q)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve %s recipients: %w", q.TargetType, apperrors.MapDBError(err))
	}
	defer rows.Close()

	out := make([]model.Recipient, 0)
	for rows.Next() {
		rec := model.Recipient{Type: q.TargetType}
		var contact sql.NullString
		if scanErr := rows.Scan(&rec.ID, &rec.DisplayName, &contact, &rec.StatusAtResolution); scanErr != nil {
			return nil, fmt.Errorf("scan recipient: %w", scanErr)
		}
		rec.ContactAddress = contact.String
		out = append(out, rec)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate recipients: %w", rowsErr)
	}
	return out, nil
}

func directoryTable(t model.TargetType) (string, error) {
	switch t {
	case model.TargetTypeCustomer:
		return "customers", nil
	case model.TargetTypePartner:
		return "partners", nil
	default:
		return "", apperrors.Validationf("unknown target type %q", t)
	}
}

func buildDirectoryQuery(table string, q core.RecipientQuery) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT id, name, phone, status FROM ")
	b.WriteString(table)

	var args []any
	switch {
	case len(q.IDs) > 0:
		// ANY over a text array keeps the statement a single round trip
		// regardless of how many IDs were selected.
		b.WriteString(" WHERE id = ANY($1)")
		args = append(args, idArray(q.IDs))
	case q.StatusFilter != nil:
		b.WriteString(" WHERE status = $1")
		args = append(args, *q.StatusFilter)
	}

	b.WriteString(" ORDER BY id ASC")
	return b.String(), args
}

// idArray renders a Postgres text array literal. The pgx stdlib driver
// accepts string array literals for ANY() parameters.
func idArray(ids []string) string {
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = `"` + strings.ReplaceAll(strings.ReplaceAll(id, `\`, `\\`), `"`, `\"`) + `"`
	}
	return "{" + strings.Join(escaped, ",") + "}"
}
