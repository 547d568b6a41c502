package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/andrebq/secrets/internal/testutil"
)

// Set SECRETS_TEST_MONGO_URI (eg.: mongodb://localhost:27017) to run
// against a live server.
func TestStore(t *testing.T) {
	uri := os.Getenv("SECRETS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SECRETS_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	database := fmt.Sprintf("secrets_test_%d", time.Now().UnixNano())
	store, err := Open(ctx, uri, database)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		store.client.Database(database).Drop(context.Background())
		store.Close()
	}()
	testutil.RunStoreSuite(t, store)
}
