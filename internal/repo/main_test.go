package repo_test

import (
	"context"
	"os"
	"testing"

	"github.com/Kdnmm11/TravPlanner-sub000/testutil"
)

// TestMain migrates the test database once per binary. Without a database
// every test skips itself through testutil.
func TestMain(m *testing.M) {
	if os.Getenv(testutil.DSNEnv) != "" {
		testutil.MigrateUp(context.Background())
	}
	os.Exit(m.Run())
}
