package gridstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore persists grids to Google Cloud Firestore under
// clients/{clientID}/grids/{gridID}. Each document carries a "version"
// field and the matrix JSON-encoded in a "json" field. Meant for hosted
// deployments where sessions must survive instance restarts.
type FirestoreStore struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreStore {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreStore{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how the firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreStore) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreStore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreStore) gridDoc(clientID string, gridID types.GridID) (*firestore.DocumentRef, error) {
	if clientID == "" {
		return nil, fmt.Errorf("clientID cannot be empty")
	}
	return f.client.Collection("clients").Doc(clientID).Collection("grids").Doc(string(gridID)), nil
}

// Load implements the version-gated read described on Store.
func (f *FirestoreStore) Load(ctx context.Context, clientID string, gridID types.GridID, expectedVersion int, fallback types.ScheduleMatrix) (types.ScheduleMatrix, error) {
	return loadGated(ctx, f, clientID, gridID, expectedVersion, fallback)
}

// Save overwrites the stored grid document.
func (f *FirestoreStore) Save(ctx context.Context, clientID string, gridID types.GridID, version int, matrix types.ScheduleMatrix) error {
	doc, err := f.gridDoc(clientID, gridID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(matrix)
	if err != nil {
		return fmt.Errorf("failed to encode matrix: %w", err)
	}
	if _, err := doc.Set(ctx, map[string]any{
		"version": version,
		"json":    string(data),
	}); err != nil {
		return fmt.Errorf("failed to save grid doc: %w", err)
	}
	return nil
}

// Get reads the stored grid regardless of version.
func (f *FirestoreStore) Get(ctx context.Context, clientID string, gridID types.GridID) (StoredGrid, bool, error) {
	docRef, err := f.gridDoc(clientID, gridID)
	if err != nil {
		return StoredGrid{}, false, err
	}
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return StoredGrid{}, false, nil
		}
		return StoredGrid{}, false, fmt.Errorf("failed to fetch grid doc: %w", err)
	}

	var stored StoredGrid
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			stored.Version = int(vInt)
		}
	}
	val, err := doc.DataAt("json")
	if err != nil {
		return StoredGrid{}, false, fmt.Errorf("grid document missing 'json' field: %w", err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return StoredGrid{}, false, fmt.Errorf("grid document 'json' field is not a string")
	}
	if err := json.Unmarshal([]byte(jsonStr), &stored.Matrix); err != nil {
		return StoredGrid{}, false, fmt.Errorf("failed to decode grid matrix: %w", err)
	}
	return stored, true, nil
}

// Delete removes every grid document stored for the client.
func (f *FirestoreStore) Delete(ctx context.Context, clientID string) error {
	if clientID == "" {
		return fmt.Errorf("clientID cannot be empty")
	}
	iter := f.client.Collection("clients").Doc(clientID).Collection("grids").Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to iterate grid docs: %w", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete grid doc %s: %w", doc.Ref.ID, err)
		}
	}
	return nil
}
