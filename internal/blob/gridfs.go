package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a client and checks the server answers.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client.Database(database), nil
}

// GridFS stores blobs in a GridFS bucket. The blob key is the GridFS filename.
type GridFS struct {
	db   *mongo.Database
	name string
}

type gridFile struct {
	ID         primitive.ObjectID `bson:"_id"`
	Filename   string             `bson:"filename"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
}

func NewGridFS(db *mongo.Database, bucket string) *GridFS {
	return &GridFS{db: db, name: bucket}
}

// bucket returns a handle whose deadlines follow ctx. Handles carry mutable
// deadlines, so one is made per call.
func (g *GridFS) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(g.db, options.GridFSBucket().SetName(g.name))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := b.SetReadDeadline(dl); err != nil {
			return nil, err
		}
		if err := b.SetWriteDeadline(dl); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (g *GridFS) Put(ctx context.Context, key, contentType string, data []byte) error {
	b, err := g.bucket(ctx)
	if err != nil {
		return err
	}
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	if _, err := b.UploadFromStream(key, bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	return nil
}

func (g *GridFS) Delete(ctx context.Context, key string) error {
	b, err := g.bucket(ctx)
	if err != nil {
		return err
	}
	files, err := g.find(ctx, b, bson.M{"filename": key})
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := b.Delete(f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("delete blob %s: %w", key, err)
		}
	}
	return nil
}

func (g *GridFS) List(ctx context.Context, olderThan time.Time) ([]Object, error) {
	b, err := g.bucket(ctx)
	if err != nil {
		return nil, err
	}
	files, err := g.find(ctx, b, bson.M{"uploadDate": bson.M{"$lt": olderThan}})
	if err != nil {
		return nil, err
	}
	out := make([]Object, 0, len(files))
	for _, f := range files {
		out = append(out, Object{Key: f.Filename, Size: f.Length, UploadedAt: f.UploadDate})
	}
	return out, nil
}

func (g *GridFS) find(ctx context.Context, b *gridfs.Bucket, filter bson.M) ([]gridFile, error) {
	cur, err := b.Find(filter)
	if err != nil {
		return nil, fmt.Errorf("find blobs: %w", err)
	}
	defer cur.Close(ctx)

	var files []gridFile
	if err := cur.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("decode blobs: %w", err)
	}
	return files, nil
}
