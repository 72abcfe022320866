// Command firestoreimport copies users, playgrounds, issues and assignments
// from the old Firebase project into MongoDB.
//
// The Firebase project comes from FIREBASE_PROJECT_ID or, failing that,
// NEXT_PUBLIC_FIREBASE_PROJECT_ID. Credentials are read from the file named
// by FIREBASE_CREDENTIALS_FILE, or from Application Default Credentials.
// Imported accounts are disabled until their owners reset a password.
// Re-running is safe; records already imported are left alone.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	assignmentstore "github.com/dalemusser/playsafe/internal/app/store/assignments"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/legacyimport"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const datastoreScope = "https://www.googleapis.com/auth/datastore"

// firebaseVars are the web client settings of the old deployment. Only the
// project id is needed here; the rest are reported when absent so a
// half-copied .env is easy to spot.
var firebaseVars = []string{
	"API_KEY",
	"AUTH_DOMAIN",
	"PROJECT_ID",
	"STORAGE_BUCKET",
	"MESSAGING_SENDER_ID",
	"APP_ID",
}

func main() {
	dryRun := flag.Bool("dry-run", false, "read and map everything but write nothing")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, *dryRun); err != nil {
		logger.Error("firestore import failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, dryRun bool) error {
	_ = godotenv.Load(".env.local", ".env")

	fb := firebaseEnv()
	for _, k := range firebaseVars {
		if fb[k] == "" {
			logger.Warn("firebase setting not set", zap.String("name", "FIREBASE_"+k))
		}
	}
	if fb["PROJECT_ID"] == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	creds, err := credentials(ctx)
	if err != nil {
		return errors.Wrap(err, "firebase credentials")
	}
	fs, err := firestore.NewClient(ctx, fb["PROJECT_ID"], option.WithCredentials(creds))
	if err != nil {
		return errors.Wrap(err, "firestore client")
	}
	defer fs.Close()

	uri := envOr("PLAYSAFE_MONGO_URI", "mongodb://localhost:27017")
	dbName := envOr("PLAYSAFE_MONGO_DATABASE", "playsafe")
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return errors.Wrap(err, "mongo connect")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Wrap(err, "mongo ping")
	}
	db := client.Database(dbName)

	im := &legacyimport.Importer{
		Reader:      firestoreSource{client: fs},
		Users:       userstore.New(db),
		Playgrounds: playgroundstore.New(db),
		Issues:      issuestore.New(db),
		Assignments: assignmentstore.New(db),
		Log:         logger,
		DryRun:      dryRun,
	}
	logger.Info("importing",
		zap.String("project", fb["PROJECT_ID"]),
		zap.String("database", dbName),
		zap.Bool("dry_run", dryRun))

	st, err := im.Run(ctx)
	if err != nil {
		return err
	}
	for _, row := range []struct {
		kind string
		c    legacyimport.Counts
	}{
		{"users", st.Users},
		{"playgrounds", st.Playgrounds},
		{"issues", st.Issues},
		{"assignments", st.Assignments},
	} {
		logger.Info("imported "+row.kind,
			zap.Int("created", row.c.Created),
			zap.Int("existing", row.c.Existing),
			zap.Int("skipped", row.c.Skipped))
	}
	return nil
}

// firebaseEnv reads FIREBASE_<NAME>, falling back to the
// NEXT_PUBLIC_FIREBASE_<NAME> names the web client used.
func firebaseEnv() map[string]string {
	out := make(map[string]string, len(firebaseVars))
	for _, k := range firebaseVars {
		v := os.Getenv("FIREBASE_" + k)
		if v == "" {
			v = os.Getenv("NEXT_PUBLIC_FIREBASE_" + k)
		}
		out[k] = v
	}
	return out
}

func credentials(ctx context.Context) (*google.Credentials, error) {
	if path := os.Getenv("FIREBASE_CREDENTIALS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return google.CredentialsFromJSON(ctx, data, datastoreScope)
	}
	return google.FindDefaultCredentials(ctx, datastoreScope)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
