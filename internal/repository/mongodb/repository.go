package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MonthlySnapshot is one archived month of the sales report.
type MonthlySnapshot struct {
	Year         int       `bson:"year"`
	Month        int       `bson:"month"`
	Label        string    `bson:"label"`
	Revenue      float64   `bson:"revenue"`
	Profit       float64   `bson:"profit"`
	TopItem      string    `bson:"top_item"`
	TopItemQty   float64   `bson:"top_item_qty"`
	InvoiceCount int       `bson:"invoice_count"`
	Receivable   float64   `bson:"receivable"`
	ArchivedAt   time.Time `bson:"archived_at"`
}

// ReportArchive stores monthly report snapshots.
type ReportArchive interface {
	SaveMonthlySnapshot(ctx context.Context, snap MonthlySnapshot) error
	FindMonthlySnapshots(ctx context.Context, year int) ([]MonthlySnapshot, error)
}

type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "monthly_reports",
	}, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveMonthlySnapshot replaces the stored snapshot for the same year and
// month, so the running month can be archived repeatedly.
func (r *MongoDBRepository) SaveMonthlySnapshot(ctx context.Context, snap MonthlySnapshot) error {
	filter := bson.M{"year": snap.Year, "month": snap.Month}
	_, err := r.collection().ReplaceOne(ctx, filter, snap, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save monthly snapshot %d-%02d: %w", snap.Year, snap.Month, err)
	}
	return nil
}

func (r *MongoDBRepository) FindMonthlySnapshots(ctx context.Context, year int) ([]MonthlySnapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "month", Value: -1}})
	cur, err := r.collection().Find(ctx, bson.M{"year": year}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly snapshots: %w", err)
	}
	defer cur.Close(ctx)

	var out []MonthlySnapshot
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode monthly snapshots: %w", err)
	}
	return out, nil
}

func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
