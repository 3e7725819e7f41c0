package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/activity"
)

// CompressionAlgo specifies the compression algorithm used for stored payloads.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// activityRow is the sys_activity row shape.
type activityRow struct {
	ID                id.ID           `db:"id"`
	Branch            string          `db:"branch"`
	Action            string          `db:"action"`
	EntityType        string          `db:"entity_type"`
	EntityID          string          `db:"entity_id"`
	UserID            string          `db:"user_id"`
	Payload           json.RawMessage `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// ActivityStore implements activity.Repository.
// Payloads above compressThreshold are stored zstd-compressed.
type ActivityStore struct {
	txManager         *TxManager
	builder           squirrel.StatementBuilderType
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ activity.Repository = (*ActivityStore)(nil)

// NewActivityStore creates a new activity store.
func NewActivityStore(txManager *TxManager) (*ActivityStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ActivityStore{
		txManager:         txManager,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// Insert records an entry.
func (s *ActivityStore) Insert(ctx context.Context, e *activity.Entry) error {
	row := s.encode(e)

	sql, args, err := s.builder.Insert("sys_activity").
		Columns("id", "branch", "action", "entity_type", "entity_id", "user_id",
			"payload", "payload_compressed", "compression_algo", "created_at").
		Values(row.ID, row.Branch, row.Action, row.EntityType, row.EntityID, row.UserID,
			row.Payload, row.PayloadCompressed, row.CompressionAlgo, row.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s *ActivityStore) List(ctx context.Context, f activity.Filter) ([]*activity.Entry, error) {
	q := s.builder.Select("id", "branch", "action", "entity_type", "entity_id", "user_id",
		"payload", "payload_compressed", "compression_algo", "created_at").
		From("sys_activity").
		OrderBy("created_at DESC").
		Limit(uint64(f.Limit))

	if f.Branches != nil {
		q = q.Where(squirrel.Eq{"branch": f.Branches})
	}
	if f.Action != "" {
		q = q.Where(squirrel.Eq{"action": string(f.Action)})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{"created_at": *f.To})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []activityRow
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}

	out := make([]*activity.Entry, 0, len(rows))
	for i := range rows {
		e, err := s.decode(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *ActivityStore) encode(e *activity.Entry) activityRow {
	row := activityRow{
		ID:              e.ID,
		Branch:          e.Branch,
		Action:          string(e.Action),
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		UserID:          e.UserID,
		Payload:         e.Payload,
		CompressionAlgo: CompressionNone,
		CreatedAt:       e.CreatedAt,
	}
	if len(e.Payload) > s.compressThreshold {
		row.PayloadCompressed = s.encoder.EncodeAll(e.Payload, nil)
		row.Payload = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row
}

func (s *ActivityStore) decode(row *activityRow) (*activity.Entry, error) {
	payload := row.Payload
	if row.CompressionAlgo == CompressionZstd && len(row.PayloadCompressed) > 0 {
		decompressed, err := s.decoder.DecodeAll(row.PayloadCompressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress activity %s: %w", row.ID, err)
		}
		payload = decompressed
	}

	return &activity.Entry{
		ID:         row.ID,
		Branch:     row.Branch,
		Action:     activity.Action(row.Action),
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		UserID:     row.UserID,
		Payload:    payload,
		CreatedAt:  row.CreatedAt,
	}, nil
}
