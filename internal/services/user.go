package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/models"
)

type UserService struct {
	collection *mongo.Collection
}

func NewUserService(db *mongo.Database) *UserService {
	return &UserService{collection: db.Collection("users")}
}

func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user.ID = primitive.NewObjectID()
	user.HPassword = string(hash)
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = time.Now()

	result, err := s.collection.InsertOne(ctx, user)
	if err != nil {
		return "", err
	}
	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

// GetUser by id of type string
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, err
}

func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.HPassword), []byte(password))
	if err != nil {
		return nil, errors.New("invalid password")
	}
	return &user, nil
}

// PayoutAccount returns the provider's linked payout email. Empty means
// unlinked; the payout engine skips the provider in that case, and a
// missing user is reported as an error, not treated as unlinked.
func (s *UserService) PayoutAccount(ctx context.Context, userID string) (string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", errors.New("provider not found")
		}
		return "", err
	}
	return user.PayPalEmail, nil
}
