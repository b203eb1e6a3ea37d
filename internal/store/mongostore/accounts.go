package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campus-events/backend/internal/models"
)

type accountDoc struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	SubjectID      string               `bson:"subject_id"`
	Email          string               `bson:"email"`
	Name           string               `bson:"name"`
	Role           models.Role          `bson:"role"`
	ProfileImage   string               `bson:"profile_image"`
	IsApproved     bool                 `bson:"is_approved"`
	OrganizationID *primitive.ObjectID  `bson:"organization_id,omitempty"`
	SavedEvents    []primitive.ObjectID `bson:"saved_events"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

func (d *accountDoc) model() *models.Account {
	return &models.Account{
		ID:             d.ID.Hex(),
		SubjectID:      d.SubjectID,
		Email:          d.Email,
		Name:           d.Name,
		Role:           d.Role,
		ProfileImage:   d.ProfileImage,
		Approved:       d.IsApproved,
		OrganizationID: hexOrEmpty(d.OrganizationID),
		SavedEvents:    hexes(d.SavedEvents),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// Accounts persists accounts in the accounts collection.
type Accounts struct {
	col *mongo.Collection
}

func (r *Accounts) findOne(ctx context.Context, op string, filter bson.M) (*models.Account, error) {
	var d accountDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, mapErr(op, err)
	}
	return d.model(), nil
}

// GetByID returns an account by ID.
func (r *Accounts) GetByID(ctx context.Context, id string) (*models.Account, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, "get account", bson.M{"_id": oid})
}

// GetBySubject returns the account of an identity-provider subject.
func (r *Accounts) GetBySubject(ctx context.Context, subjectID string) (*models.Account, error) {
	return r.findOne(ctx, "get account by subject", bson.M{"subject_id": subjectID})
}

// Create inserts an account.
func (r *Accounts) Create(ctx context.Context, a *models.Account) error {
	now := time.Now().UTC()
	d := accountDoc{
		SubjectID:    a.SubjectID,
		Email:        a.Email,
		Name:         a.Name,
		Role:         a.Role,
		ProfileImage: a.ProfileImage,
		IsApproved:   a.Approved,
		SavedEvents:  []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := r.col.InsertOne(ctx, d)
	if err != nil {
		return mapErr("create account", err)
	}
	a.ID = res.InsertedID.(primitive.ObjectID).Hex()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.SavedEvents == nil {
		a.SavedEvents = []string{}
	}
	return nil
}

// List returns all accounts, newest first.
func (r *Accounts) List(ctx context.Context) ([]*models.Account, error) {
	cur, err := r.col.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapErr("list accounts", err)
	}
	list, err := decodeAll(ctx, cur, (*accountDoc).model)
	return list, mapErr("list accounts", err)
}

// UpdateRole changes only the role.
func (r *Accounts) UpdateRole(ctx context.Context, id string, role models.Role) (*models.Account, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var d accountDoc
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, mapErr("update account role", err)
	}
	return d.model(), nil
}

// UpdateMembership links the account to the organization it owns.
func (r *Accounts) UpdateMembership(ctx context.Context, id string, role models.Role, orgID string, approved bool) error {
	oid, err := parseID(orgID)
	if err != nil {
		return err
	}
	return r.update(ctx, "update account membership", id, bson.M{"$set": bson.M{
		"role":            role,
		"organization_id": oid,
		"is_approved":     approved,
	}})
}

// SetApproved sets the approval flag.
func (r *Accounts) SetApproved(ctx context.Context, id string, approved bool) error {
	return r.update(ctx, "set account approval", id, bson.M{"$set": bson.M{"is_approved": approved}})
}

// SaveEvent adds eventID to saved_events once.
func (r *Accounts) SaveEvent(ctx context.Context, id, eventID string) error {
	eid, err := parseID(eventID)
	if err != nil {
		return err
	}
	return r.update(ctx, "save event", id, bson.M{"$addToSet": bson.M{"saved_events": eid}})
}

// UnsaveEvent removes eventID from saved_events.
func (r *Accounts) UnsaveEvent(ctx context.Context, id, eventID string) error {
	eid, err := parseID(eventID)
	if err != nil {
		return err
	}
	return r.update(ctx, "unsave event", id, bson.M{"$pull": bson.M{"saved_events": eid}})
}

func (r *Accounts) update(ctx context.Context, op, id string, update bson.M) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updated_at"] = time.Now().UTC()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return mapErr(op, err)
	}
	if res.MatchedCount == 0 {
		return mapErr(op, mongo.ErrNoDocuments)
	}
	return nil
}
