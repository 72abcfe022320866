package main

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreSource reads legacy documents for the importer.
type firestoreSource struct {
	client *firestore.Client
}

func (s firestoreSource) Lookup(ctx context.Context, collection, uid string) (map[string]any, bool, error) {
	snap, err := s.client.Collection(collection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !snap.Exists() {
		return nil, false, nil
	}
	return snap.Data(), true, nil
}

func (s firestoreSource) Each(ctx context.Context, collection string, fn func(id string, doc map[string]any) error) error {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(snap.Ref.ID, snap.Data()); err != nil {
			return err
		}
	}
}
