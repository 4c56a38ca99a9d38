package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(pgx.ErrNoRows) {
		t.Error("pgx.ErrNoRows should be not-found")
	}
	if !IsNotFound(fmt.Errorf("get user: %w", pgx.ErrNoRows)) {
		t.Error("wrapped pgx.ErrNoRows should be not-found")
	}
	if IsNotFound(errors.New("boom")) {
		t.Error("arbitrary error should not be not-found")
	}
}

func TestIsConflict(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"23505", true},
		{"23P01", true},
		{"23503", false},
		{"42601", false},
	}
	for _, tc := range cases {
		err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: tc.code})
		if got := IsConflict(err); got != tc.want {
			t.Errorf("IsConflict(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
	if IsConflict(errors.New("boom")) {
		t.Error("arbitrary error should not be a conflict")
	}
}

func TestIsReferenced(t *testing.T) {
	fk := fmt.Errorf("delete doctor: %w", &pgconn.PgError{Code: "23503"})
	if !IsReferenced(fk) {
		t.Error("23503 should be a foreign-key violation")
	}
	if IsReferenced(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("23505 should not be a foreign-key violation")
	}
	if IsReferenced(pgx.ErrNoRows) {
		t.Error("pgx.ErrNoRows should not be a foreign-key violation")
	}
}
