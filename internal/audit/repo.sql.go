package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository reads audit_logs. Writes go through shared.AuditLogger.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PostgresRepository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Timeline returns matching rows ordered newest first. A zero Limit
// means no limit.
func (r *PostgresRepository) Timeline(ctx context.Context, orgID int64, q Query) ([]TimelineRow, error) {
	sql := `SELECT occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs
WHERE org_id = $1
  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR occurred_at < $3)
  AND ($4::bigint = 0 OR actor_id = $4)
  AND ($5::text = '' OR entity = $5)
  AND ($6::text = '' OR action = $6)
ORDER BY occurred_at DESC, id DESC`
	args := []any{orgID, toTimestamptz(q.From), toTimestamptz(q.To), q.ActorID,
		strings.TrimSpace(q.Entity), strings.TrimSpace(q.Action)}
	if q.Limit > 0 {
		sql += ` OFFSET $7 LIMIT $8`
		args = append(args, q.Offset, q.Limit)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func toTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}
