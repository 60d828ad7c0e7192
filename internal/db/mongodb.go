package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WordList is a themed word pool as stored in the wordlists collection.
// Deployments seed this collection to serve fresher pools than the built-in
// library; when Mongo is absent the library is used instead.
type WordList struct {
	Theme string   `bson:"theme"`
	Words []string `bson:"words"`
}

var client *mongo.Client

// Connect establishes the shared client. Callers treat a failure as
// "run without Mongo" rather than fatal.
func Connect(uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	return err
}

// Connected reports whether Connect succeeded earlier in the process.
func Connected() bool {
	return client != nil
}

// GetWordList fetches the pool for a theme. mongo.ErrNoDocuments when the
// theme has no stored pool.
func GetWordList(ctx context.Context, theme string) (*WordList, error) {
	collection := client.Database("synqType").Collection("wordlists")

	var list WordList
	err := collection.FindOne(ctx, bson.D{{Key: "theme", Value: theme}}).Decode(&list)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// GetRandomWordList samples one stored pool, for rooms created with the
// "random" theme.
func GetRandomWordList(ctx context.Context) (*WordList, error) {
	collection := client.Database("synqType").Collection("wordlists")

	pipeline := mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var list WordList
	if cursor.Next(ctx) {
		if err := cursor.Decode(&list); err != nil {
			return nil, err
		}
		return &list, nil
	}
	return nil, mongo.ErrNoDocuments
}
