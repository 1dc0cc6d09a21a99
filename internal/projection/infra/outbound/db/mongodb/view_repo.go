package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	projDomain "github.com/davicafu/walletflow/internal/projection/domain"
)

// ViewRepoMongoDB implementa ViewRepository sobre MongoDB, como backend
// alternativo del read model.
type ViewRepoMongoDB struct {
	client    *mongo.Client
	viewsColl *mongo.Collection
}

// Verificación estática
var _ projDomain.ViewRepository = (*ViewRepoMongoDB)(nil)

func NewViewRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*ViewRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	return &ViewRepoMongoDB{
		client:    client,
		viewsColl: client.Database(dbName).Collection("wallet_views"),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoWalletView struct {
	WalletID  string    `bson:"_id"`
	Balance   int64     `bson:"balance"`
	Exists    bool      `bson:"exists"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (r *ViewRepoMongoDB) Get(ctx context.Context, walletID string) (*projDomain.WalletView, error) {
	var doc mongoWalletView
	err := r.viewsColl.FindOne(ctx, bson.M{"_id": walletID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, projDomain.ErrViewNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &projDomain.WalletView{
		WalletID:  doc.WalletID,
		Balance:   doc.Balance,
		Exists:    doc.Exists,
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// Save hace un upsert monótono: sólo actualiza si la versión guardada es
// menor que la entrante. El error de clave duplicada en el insert significa
// que otra entrega ya dejó una versión igual o mayor, y se ignora.
func (r *ViewRepoMongoDB) Save(ctx context.Context, view *projDomain.WalletView) error {
	doc := mongoWalletView{
		WalletID:  view.WalletID,
		Balance:   view.Balance,
		Exists:    view.Exists,
		Version:   view.Version,
		UpdatedAt: view.UpdatedAt,
	}

	res, err := r.viewsColl.UpdateOne(ctx,
		bson.M{"_id": view.WalletID, "version": bson.M{"$lt": view.Version}},
		bson.M{"$set": doc},
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet view: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	_, err = r.viewsColl.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil // ya existe con versión >= a la nuestra
		}
		return fmt.Errorf("failed to insert wallet view: %w", err)
	}
	return nil
}

func (r *ViewRepoMongoDB) List(ctx context.Context, limit int) ([]*projDomain.WalletView, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "balance", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.viewsColl.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cursor.Close(ctx)

	var views []*projDomain.WalletView
	for cursor.Next(ctx) {
		var doc mongoWalletView
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		views = append(views, &projDomain.WalletView{
			WalletID:  doc.WalletID,
			Balance:   doc.Balance,
			Exists:    doc.Exists,
			Version:   doc.Version,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	return views, cursor.Err()
}
