package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaIsIdempotentAndGuardsDoubleBooking(t *testing.T) {
	schema := Schema()
	assert.NotEmpty(t, schema)

	for _, stmt := range strings.Split(schema, ";") {
		stmt = stripComments(stmt)
		upper := strings.ToUpper(stmt)
		if strings.HasPrefix(upper, "CREATE") {
			assert.Contains(t, upper, "IF NOT EXISTS", "statement must be idempotent: %s", firstLine(stmt))
		}
	}

	assert.Contains(t, schema, "bookings_seat_slot_live_uidx")
	assert.Contains(t, schema, "WHERE status IN ('ACTIVE', 'COMPLETED')")
	assert.Contains(t, schema, "gateway_order_id    TEXT NOT NULL UNIQUE")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func stripComments(stmt string) string {
	var kept []string
	for _, line := range strings.Split(stmt, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
