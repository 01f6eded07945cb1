package gridstore

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"
)

// Configured sets up the grid Store based on flags.
func Configured() Store {
	provider := lflag.String("grid-store", "file", "Grid store provider to use (available: file, memory, firestore)")
	dir := lflag.String("grid-store-dir", "./grids", "Directory for the file grid store")

	var s struct{ Store }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "file":
			store, err := NewFileStore(*dir)
			if err != nil {
				panic(fmt.Sprintf("file grid store init failed: %v", err))
			}
			s.Store = store
		case "memory":
			s.Store = NewMemoryStore()
		case "firestore":
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
			s.Store = fs
		default:
			panic(fmt.Sprintf("unknown grid store provider: %s", *provider))
		}
	})

	return &s
}
