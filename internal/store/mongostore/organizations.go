package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
)

type organizationDoc struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty"`
	Name         string                 `bson:"name"`
	Description  string                 `bson:"description"`
	Logo         string                 `bson:"logo"`
	ContactEmail string                 `bson:"contact_email"`
	ContactPhone string                 `bson:"contact_phone"`
	Website      string                 `bson:"website"`
	Address      models.Address         `bson:"address"`
	SocialMedia  models.SocialMedia     `bson:"social_media"`
	CreatedBy    primitive.ObjectID     `bson:"created_by"`
	State        models.ModerationState `bson:"state"`
	CreatedAt    time.Time              `bson:"created_at"`
	UpdatedAt    time.Time              `bson:"updated_at"`
}

func (d *organizationDoc) model() *models.Organization {
	return &models.Organization{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Description:  d.Description,
		Logo:         d.Logo,
		ContactEmail: d.ContactEmail,
		ContactPhone: d.ContactPhone,
		Website:      d.Website,
		Address:      d.Address,
		SocialMedia:  d.SocialMedia,
		CreatedBy:    d.CreatedBy.Hex(),
		State:        d.State,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Organizations persists organizations in the organizations collection.
type Organizations struct {
	col *mongo.Collection
}

func (r *Organizations) findOne(ctx context.Context, op string, filter bson.M) (*models.Organization, error) {
	var d organizationDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, mapErr(op, err)
	}
	return d.model(), nil
}

// GetByID returns an organization by ID.
func (r *Organizations) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, "get organization", bson.M{"_id": oid})
}

// GetByOwner returns the organization created by accountID.
func (r *Organizations) GetByOwner(ctx context.Context, accountID string) (*models.Organization, error) {
	oid, err := parseID(accountID)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, "get organization by owner", bson.M{"created_by": oid})
}

// GetByIDs returns the organizations that exist among ids.
func (r *Organizations) GetByIDs(ctx context.Context, ids []string) ([]*models.Organization, error) {
	oids := parseIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, mapErr("get organizations", err)
	}
	list, err := decodeAll(ctx, cur, (*organizationDoc).model)
	return list, mapErr("get organizations", err)
}

// Create inserts an organization. The owner index rejects a second one.
func (r *Organizations) Create(ctx context.Context, o *models.Organization) error {
	owner, err := parseID(o.CreatedBy)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	d := organizationDoc{
		Name:         o.Name,
		Description:  o.Description,
		Logo:         o.Logo,
		ContactEmail: o.ContactEmail,
		ContactPhone: o.ContactPhone,
		Website:      o.Website,
		Address:      o.Address,
		SocialMedia:  o.SocialMedia,
		CreatedBy:    owner,
		State:        o.State,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := r.col.InsertOne(ctx, d)
	if err != nil {
		return mapErr("create organization", err)
	}
	o.ID = res.InsertedID.(primitive.ObjectID).Hex()
	o.CreatedAt, o.UpdatedAt = now, now
	return nil
}

// Update applies the patch and optional state in one document write.
func (r *Organizations) Update(ctx context.Context, id string, patch models.OrganizationPatch, state *models.ModerationState) (*models.Organization, error) {
	set := organizationSet(patch)
	if state != nil {
		set["state"] = *state
	}
	return r.set(ctx, "update organization", id, set)
}

// SetState writes only the moderation state.
func (r *Organizations) SetState(ctx context.Context, id string, state models.ModerationState) (*models.Organization, error) {
	return r.set(ctx, "set organization state", id, bson.M{"state": state})
}

// List returns one page of matching organizations and the total match count.
func (r *Organizations) List(ctx context.Context, f store.OrganizationFilter, sort store.Sort, page store.Page) ([]*models.Organization, int64, error) {
	filter := organizationFilter(f)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapErr("count organizations", err)
	}
	cur, err := r.col.Find(ctx, filter, findOptions(organizationSort(sort), page))
	if err != nil {
		return nil, 0, mapErr("list organizations", err)
	}
	list, err := decodeAll(ctx, cur, (*organizationDoc).model)
	if err != nil {
		return nil, 0, mapErr("list organizations", err)
	}
	return list, total, nil
}

func (r *Organizations) set(ctx context.Context, op, id string, set bson.M) (*models.Organization, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now().UTC()
	var d organizationDoc
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return d.model(), nil
}

func organizationFilter(f store.OrganizationFilter) bson.D {
	filter := approvedCondition(bson.D{}, f.Approved)
	if f.Search != "" {
		re := containsRegex(f.Search)
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
		}})
	}
	return filter
}

func organizationSort(sort store.Sort) bson.D {
	if sort == store.SortCreatedDesc {
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
}

func organizationSet(p models.OrganizationPatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Logo != nil {
		set["logo"] = *p.Logo
	}
	if p.ContactEmail != nil {
		set["contact_email"] = *p.ContactEmail
	}
	if p.ContactPhone != nil {
		set["contact_phone"] = *p.ContactPhone
	}
	if p.Website != nil {
		set["website"] = *p.Website
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if p.SocialMedia != nil {
		set["social_media"] = *p.SocialMedia
	}
	return set
}
