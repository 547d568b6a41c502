package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/andrebq/secrets/users"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireUserStore opens a SQLite user store in a temporary directory.
// The returned func closes the store and removes the directory.
func AcquireUserStore(ctx context.Context, t TestLog, name string) (*users.Control, func()) {
	dir, err := os.MkdirTemp("", "secrets-tests")
	if err != nil {
		t.Fatal(err)
	}
	ctl, err := users.OpenSQLite(ctx, filepath.Join(dir, name, "users.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return ctl, func() {
		err := ctl.Close()
		if err != nil {
			t.Log("unable to close user store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

// AcquirePopulatedUserStore is like AcquireUserStore but runs loader
// before handing the store over.
func AcquirePopulatedUserStore(ctx context.Context, t TestLog, name string, loader func(context.Context, users.Store) error) (*users.Control, func()) {
	ctl, cleanup := AcquireUserStore(ctx, t, name)
	if loader != nil {
		if err := loader(ctx, ctl); err != nil {
			cleanup()
			t.Fatal(err)
		}
	}
	return ctl, cleanup
}
