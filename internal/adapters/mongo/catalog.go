package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/robertarktes/seat-reservation-engine/internal/domain"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

// CatalogRepository reads show metadata maintained by the catalog service.
// The engine never creates or mutates shows outside of tests and seeding.
type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("shows"),
		logger: logger,
	}
}

type ShowDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Venue     string    `bson:"venue"`
	StartsAt  time.Time `bson:"starts_at"`
	SeatPrice float64   `bson:"seat_price"`
	Seats     []SeatDoc `bson:"seats"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type SeatDoc struct {
	ID string `bson:"id"`
	// Blocked marks seats the catalog declared statically unsellable
	// (broken, restricted view, production hold).
	Blocked bool `bson:"blocked"`
}

func (c *CatalogRepository) GetShow(ctx context.Context, id string) (*ShowDoc, error) {
	var show ShowDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&show)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to get show", err)
		return nil, err
	}
	return &show, nil
}

// ShowInfo projects a catalog document onto the metadata the engine uses.
func (c *CatalogRepository) ShowInfo(ctx context.Context, id string) (*domain.Show, error) {
	show, err := c.GetShow(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.Show{
		ID:        show.ID,
		Name:      show.Name,
		Venue:     show.Venue,
		StartsAt:  show.StartsAt,
		SeatPrice: show.SeatPrice,
	}, nil
}

// BlockedSeats returns the statically unsellable seats of a show.
func (c *CatalogRepository) BlockedSeats(ctx context.Context, id string) ([]string, error) {
	show, err := c.GetShow(ctx, id)
	if err != nil {
		return nil, err
	}
	var blocked []string
	for _, seat := range show.Seats {
		if seat.Blocked {
			blocked = append(blocked, seat.ID)
		}
	}
	return blocked, nil
}

func (c *CatalogRepository) CreateShow(ctx context.Context, show ShowDoc) error {
	show.CreatedAt = time.Now()
	show.UpdatedAt = time.Now()
	_, err := c.coll.InsertOne(ctx, show)
	if err != nil {
		c.logger.Error("failed to create show", err)
		return err
	}
	return nil
}
