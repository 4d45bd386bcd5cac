//go:build integration

package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// Run with: MONGO_URI=mongodb://localhost:27017 go test -tags integration ./pkg/store
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()
	st, err := NewMongoStore(ctx, MongoConfig{
		URI:        uri,
		Database:   "forumgraph_test",
		Collection: fmt.Sprintf("graphs_%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("NewMongoStore: %v", err)
	}
	defer func() {
		_ = st.coll.Drop(ctx)
		_ = st.Close(ctx)
	}()
	testStore(t, st)
}
