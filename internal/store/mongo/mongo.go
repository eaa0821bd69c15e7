// Package mongo implements store.Store on MongoDB. Issues are single documents with embedded comments.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	issuesCollection   = "issues"
	chatsCollection    = "chats"
	accountsCollection = "accounts"
)

type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	issues   *mongo.Collection
	chats    *mongo.Collection
	accounts *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open connects, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	s := New(client, database)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	slog.Info("mongodb connected", "database", database)
	return s, nil
}

func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:   client,
		users:    db.Collection(usersCollection),
		issues:   db.Collection(issuesCollection),
		chats:    db.Collection(chatsCollection),
		accounts: db.Collection(accountsCollection),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "uid", Value: 1}}, Options: unique},
		},
		s.issues: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "location", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "reportedBy", Value: 1}}},
		},
		s.chats: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		s.accounts: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
	}
	for coll, idx := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// now is truncated to BSON datetime precision so values round-trip unchanged.
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

func exactFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOneOptions) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter, opts...).Decode(&out); err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	store.PrepareUser(u, now())
	_, err := s.users.InsertOne(ctx, u)
	return translate(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, s.users, bson.M{"_id": id})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.users, bson.M{"email": email})
}

func (s *Store) FindUserByUID(ctx context.Context, uid string) (*models.User, error) {
	return findOne[models.User](ctx, s.users, bson.M{"uid": uid})
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, s.users, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = now()
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"updatedAt": u.UpdatedAt,
	}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteByID(ctx, s.users, id)
}

func (s *Store) UserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := findAll[models.User](ctx, s.users,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1}))
	if err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = *users[i].Summary()
	}
	return out, nil
}

// Issues

func issueQuery(f store.IssueFilter) bson.M {
	q := bson.M{}
	if f.Location != "" {
		q["location"] = f.Location
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.ReportedBy != "" {
		q["reportedBy"] = f.ReportedBy
	}
	if models.ValidFlag(f.Flag) {
		q["flags."+f.Flag] = true
	}
	return q
}

func normalize(issue *models.Issue) {
	if issue.Comments == nil {
		issue.Comments = []models.Comment{}
	}
}

func (s *Store) CreateIssue(ctx context.Context, issue *models.Issue) error {
	store.PrepareIssue(issue, now())
	_, err := s.issues.InsertOne(ctx, issue)
	return translate(err)
}

func (s *Store) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := findOne[models.Issue](ctx, s.issues, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	normalize(issue)
	return issue, nil
}

func (s *Store) ListIssues(ctx context.Context, f store.IssueFilter) ([]models.Issue, error) {
	issues, err := findAll[models.Issue](ctx, s.issues, issueQuery(f),
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	for i := range issues {
		normalize(&issues[i])
	}
	return issues, nil
}

func (s *Store) SaveIssue(ctx context.Context, issue *models.Issue) error {
	expected := issue.Version
	next := *issue
	next.Version = expected + 1
	next.UpdatedAt = now()
	next.Reporter = nil

	res, err := s.issues.ReplaceOne(ctx, bson.M{"_id": issue.ID, "version": expected}, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.issues.CountDocuments(ctx, bson.M{"_id": issue.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	issue.Version = next.Version
	issue.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *Store) DeleteIssue(ctx context.Context, id string) error {
	return deleteByID(ctx, s.issues, id)
}

// Chats

func (s *Store) FindChat(ctx context.Context, userID, question string) (*models.Chat, error) {
	return findOne[models.Chat](ctx, s.chats,
		bson.M{"userId": userID, "question": exactFold(question)},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (s *Store) CreateChat(ctx context.Context, chat *models.Chat) error {
	store.PrepareChat(chat, now())
	_, err := s.chats.InsertOne(ctx, chat)
	return err
}

func (s *Store) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	return findAll[models.Chat](ctx, s.chats, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// Accounts

func (s *Store) CreateAccount(ctx context.Context, a *models.Account) error {
	store.PrepareAccount(a, now())
	_, err := s.accounts.InsertOne(ctx, a)
	return translate(err)
}

func (s *Store) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	return findOne[models.Account](ctx, s.accounts, bson.M{"_id": uid})
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return findOne[models.Account](ctx, s.accounts, bson.M{"email": exactFold(email)})
}

func (s *Store) UpdateAccount(ctx context.Context, a *models.Account) error {
	a.UpdatedAt = now()
	res, err := s.accounts.UpdateOne(ctx, bson.M{"_id": a.UID}, bson.M{"$set": bson.M{
		"email":        a.Email,
		"passwordHash": a.PasswordHash,
		"displayName":  a.DisplayName,
		"validSince":   a.ValidSince,
		"updatedAt":    a.UpdatedAt,
	}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, uid string) error {
	return deleteByID(ctx, s.accounts, uid)
}
