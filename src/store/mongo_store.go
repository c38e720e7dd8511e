package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nuerofin/backend/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	cardsCollection         = "cards"
	transactionsCollection  = "sandbox_transactions"
	accrualStatesCollection = "accrual_states"
)

// MongoStore implements Store on MongoDB. Each sandbox transaction is its own
// document, keyed by card number and month.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// NewMongoStore connects to uri, verifies the connection and ensures indexes.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database), now: time.Now}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		cardsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "cardNumber", Value: 1}, {Key: "month", Value: 1}}},
		},
		accrualStatesCollection: {
			{Keys: bson.D{{Key: "cardNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) ListAllCards(ctx context.Context) ([]models.CardRef, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetProjection(bson.D{{Key: "id", Value: 1}, {Key: "number", Value: 1}, {Key: "bank", Value: 1}})
	cur, err := s.db.Collection(cardsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying cards: %w", err)
	}
	defer cur.Close(ctx)

	var cards []models.CardRef
	for cur.Next(ctx) {
		var c models.Card
		if err := cur.Decode(&c); err != nil {
			return nil, fmt.Errorf("error decoding card: %w", err)
		}
		cards = append(cards, models.CardRef{CardID: c.ID, CardNumber: c.Number, Bank: c.Bank})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return cards, nil
}

func (s *MongoStore) GetCardByUser(ctx context.Context, userID string) (*models.Card, error) {
	var c models.Card
	err := s.db.Collection(cardsCollection).FindOne(ctx, bson.D{{Key: "userId", Value: userID}}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading card for user %s: %w", userID, err)
	}
	return &c, nil
}

func (s *MongoStore) SaveCardForUser(ctx context.Context, card models.Card) (*models.Card, error) {
	if card.UserID == "" {
		return nil, fmt.Errorf("card user ID is required")
	}
	now := s.now().UTC()
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "number", Value: card.Number},
			{Key: "holder", Value: card.Holder},
			{Key: "expiry", Value: card.Expiry},
			{Key: "brand", Value: card.Brand},
			{Key: "bank", Value: card.Bank},
			{Key: "logoUrl", Value: card.LogoURL},
			{Key: "updatedAt", Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "id", Value: uuid.NewString()},
			{Key: "createdAt", Value: now},
		}},
	}
	// userId is seeded from the filter on insert.
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved models.Card
	err := s.db.Collection(cardsCollection).
		FindOneAndUpdate(ctx, bson.D{{Key: "userId", Value: card.UserID}}, update, opts).
		Decode(&saved)
	if err != nil {
		return nil, fmt.Errorf("error saving card for user %s: %w", card.UserID, err)
	}
	return &saved, nil
}

func (s *MongoStore) HasAnyTransactionFor(ctx context.Context, cardNumber string) (bool, error) {
	n, err := s.db.Collection(transactionsCollection).
		CountDocuments(ctx, bson.D{{Key: "cardNumber", Value: cardNumber}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking transactions for card %s: %w", cardNumber, err)
	}
	return n > 0, nil
}

func (s *MongoStore) CountTransactionsFor(ctx context.Context, cardNumber string) (int, error) {
	n, err := s.db.Collection(transactionsCollection).CountDocuments(ctx, bson.D{{Key: "cardNumber", Value: cardNumber}})
	if err != nil {
		return 0, fmt.Errorf("error counting transactions for card %s: %w", cardNumber, err)
	}
	return int(n), nil
}

// mongoTransaction adds the stored month key to the transaction document.
type mongoTransaction struct {
	models.SandboxTransaction `bson:",inline"`
	Month                     string `bson:"month"`
}

func (s *MongoStore) InsertTransaction(ctx context.Context, tx models.SandboxTransaction) error {
	doc := mongoTransaction{SandboxTransaction: tx, Month: tx.MonthKey()}
	if _, err := s.db.Collection(transactionsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("error inserting transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (s *MongoStore) ListTransactionsByCard(ctx context.Context, cardNumber string) ([]models.SandboxTransaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.db.Collection(transactionsCollection).Find(ctx, bson.D{{Key: "cardNumber", Value: cardNumber}}, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for card %s: %w", cardNumber, err)
	}
	defer cur.Close(ctx)

	var txs []models.SandboxTransaction
	for cur.Next(ctx) {
		var doc mongoTransaction
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding transaction for card %s: %w", cardNumber, err)
		}
		tx := doc.SandboxTransaction
		tx.Timestamp = tx.Timestamp.UTC()
		tx.CreatedAt = tx.CreatedAt.UTC()
		txs = append(txs, tx)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions for card %s: %w", cardNumber, err)
	}
	return txs, nil
}

func (s *MongoStore) GetAccrualState(ctx context.Context, cardNumber string) (*models.AccrualState, error) {
	var st models.AccrualState
	err := s.db.Collection(accrualStatesCollection).FindOne(ctx, bson.D{{Key: "cardNumber", Value: cardNumber}}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading accrual state for card %s: %w", cardNumber, err)
	}
	return &st, nil
}

func (s *MongoStore) SaveAccrualState(ctx context.Context, state models.AccrualState) error {
	state.UpdatedAt = s.now().UTC()
	_, err := s.db.Collection(accrualStatesCollection).ReplaceOne(ctx,
		bson.D{{Key: "cardNumber", Value: state.CardNumber}},
		state,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving accrual state for card %s: %w", state.CardNumber, err)
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
