package orderlog

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"

	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
)

// PostgresSink appends records to an order_log table, one row per
// significant turn. Item and ticket snapshots go into jsonb columns so
// the owner dashboard can query them without schema churn.
type PostgresSink struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresSink(db *sql.DB, log logger.Logger) *PostgresSink {
	return &PostgresSink{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "order_log_postgres"}),
	}
}

const insertRecordSQL = `
	INSERT INTO order_log (
		logged_at, session_id, business_id, intent,
		customer_text, ai_response, provenance,
		order_items, order_total, kitchen_ticket
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Append inserts one row. JSON marshalling of the snapshots cannot fail
// for these types, so encode errors are folded into the write error.
func (ps *PostgresSink) Append(ctx context.Context, record Record) error {
	itemsJSON, err := json.Marshal(record.OrderItems)
	if err != nil {
		return stderrors.NewOrderLogWriteFailedError(err)
	}

	var ticketJSON []byte
	if record.KitchenTicket != nil {
		ticketJSON, err = json.Marshal(record.KitchenTicket)
		if err != nil {
			return stderrors.NewOrderLogWriteFailedError(err)
		}
	}

	_, err = ps.db.ExecContext(ctx, insertRecordSQL,
		record.Timestamp,
		record.SessionID,
		record.BusinessID,
		record.Intent,
		record.CustomerText,
		record.Response,
		record.Provenance,
		itemsJSON,
		record.OrderTotal,
		nullableJSON(ticketJSON),
	)
	if err != nil {
		return stderrors.NewOrderLogWriteFailedError(err)
	}
	return nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
