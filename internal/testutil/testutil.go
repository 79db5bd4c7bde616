package testutil

import (
	"database/sql"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/PremHer/appdelivery-sub000/internal/db"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// A shared cache is used so multiple connections see the same DB. The DB is
// closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// SignToken returns a signed HS256 JWT with the claims the API expects.
func SignToken(t *testing.T, secret string, userID int64, username, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  username,
		"uid":  userID,
		"role": role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}
