package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	emailDup := &pgconn.PgError{Code: "23505", ConstraintName: UsersEmailKey}
	slugDup := &pgconn.PgError{Code: "23505", ConstraintName: FeedsSlugKey}
	fkErr := &pgconn.PgError{Code: "23503", ConstraintName: "episodes_feed_id_fkey"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"any constraint", emailDup, "", true},
		{"matching constraint", emailDup, UsersEmailKey, true},
		{"other constraint", slugDup, UsersEmailKey, false},
		{"wrapped", fmt.Errorf("insert: %w", slugDup), FeedsSlugKey, true},
		{"foreign key", fkErr, "", false},
		{"plain error", errors.New("duplicate key"), "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err, tt.constraint))
		})
	}
}

func TestNullString(t *testing.T) {
	assert.False(t, NullString("").Valid)

	ns := NullString("my-show")
	assert.True(t, ns.Valid)
	assert.Equal(t, "my-show", ns.String)
}
