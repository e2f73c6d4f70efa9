package mongodb

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/listing"
)

// Connect opens a client against conf.Database.URI and pings the
// primary to fail fast on bad deployments.
func Connect(ctx context.Context, conf *core.Config) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "pinging mongodb")
	}
	return client, nil
}

// searchRegex builds a case-insensitive contains-match for the given term.
func searchRegex(term string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
}

// exactRegex builds a case-insensitive whole-value match.
func exactRegex(term string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(term) + "$", "$options": "i"}
}

// findOptions translates listing params into mongo find options.
// Params are assumed clamped by the binding layer.
func findOptions(params listing.Params, sortFields map[string]string) *options.FindOptions {
	opts := options.Find().
		SetSkip(int64(params.Offset())).
		SetLimit(int64(params.PageSize))

	if field, ok := sortFields[params.SortField]; ok {
		dir := 1
		if !params.SortAsc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: field, Value: dir}})
	}
	return opts
}

// queryPage runs the count+find pair every listing endpoint needs and
// decodes the raw documents through decode.
func queryPage[T any, M any](
	ctx context.Context,
	coll *mongo.Collection,
	filter bson.M,
	params listing.Params,
	sortFields map[string]string,
	decode func(M) T,
) (listing.Page[T], error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return listing.Page[T]{}, errors.Wrap(err, "counting documents")
	}

	params.Page = listing.ClampPage(params.Page, listing.NumPages(int(total), params.PageSize))
	cursor, err := coll.Find(ctx, filter, findOptions(params, sortFields))
	if err != nil {
		return listing.Page[T]{}, errors.Wrap(err, "finding documents")
	}
	defer cursor.Close(ctx)

	items := make([]T, 0, params.PageSize)
	for cursor.Next(ctx) {
		var doc M
		if err = cursor.Decode(&doc); err != nil {
			return listing.Page[T]{}, errors.Wrap(err, "decoding document")
		}
		items = append(items, decode(doc))
	}
	if err = cursor.Err(); err != nil {
		return listing.Page[T]{}, err
	}
	return listing.NewPage(items, int(total), params), nil
}
