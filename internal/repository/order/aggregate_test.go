package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/dialect"
)

func TestGroupExpr(t *testing.T) {
	cases := []struct {
		name    dialect.Name
		groupBy string
		want    string
	}{
		{dialect.PG, "day", "to_char(created_at, 'YYYY-MM-DD')"},
		{dialect.PG, "month", "to_char(created_at, 'YYYY-MM')"},
		{dialect.PG, "year", "to_char(created_at, 'YYYY')"},
		{dialect.MySQL, "day", "DATE(created_at)"},
		{dialect.MySQL, "month", "DATE_FORMAT(created_at, '%Y-%m')"},
		{dialect.MySQL, "year", "DATE_FORMAT(created_at, '%Y')"},
		{dialect.SQLite, "month", "strftime('%Y-%m', created_at)"},
	}
	for _, tc := range cases {
		got, err := groupExpr(tc.name, tc.groupBy)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestGroupExprRejectsUnknownGranularity(t *testing.T) {
	for _, groupBy := range []string{"", "bogus", "week", "DAY"} {
		_, err := groupExpr(dialect.PG, groupBy)
		assert.ErrorIs(t, err, ErrInvalidGroupBy, "groupBy=%q", groupBy)
	}
}

func TestFilterSQL(t *testing.T) {
	where, args := filterSQL(Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	status := 2
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	userID := int64(7)

	where, args = filterSQL(Filter{Status: &status, FromDate: &from, ToDate: &to, UserID: &userID})
	assert.Equal(t, " WHERE status = ? AND created_at >= ? AND created_at <= ? AND user_id = ?", where)
	assert.Equal(t, []any{status, from, to, userID}, args)

	where, args = filterSQL(Filter{UserID: &userID})
	assert.Equal(t, " WHERE user_id = ?", where)
	assert.Equal(t, []any{userID}, args)
}
