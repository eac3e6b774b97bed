package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/skripsi/core/user"
	"github.com/trezcool/skripsi/storage/database"
)

const testDatabaseURLEnv = "TEST_DATABASE_URL"

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// OpenTestDB opens the Postgres database at TEST_DATABASE_URL, migrated and emptied.
// The test is skipped when the variable is not set.
func OpenTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	rawURL := os.Getenv(testDatabaseURLEnv)
	if rawURL == "" {
		t.Skipf("%s not set", testDatabaseURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.OpenURL(rawURL)
	if err != nil {
		t.Fatalf("OpenTestDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Ping(ctx, db); err != nil {
		t.Fatalf("OpenTestDB() failed: %v", err)
	}
	if err = database.Migrate(ctx, db); err != nil {
		t.Fatalf("OpenTestDB() failed: %v", err)
	}
	if _, err = db.ExecContext(ctx, "TRUNCATE users CASCADE"); err != nil {
		t.Fatalf("OpenTestDB() failed: %v", err)
	}
	return db
}
