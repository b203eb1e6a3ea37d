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

type eventDoc struct {
	ID               primitive.ObjectID     `bson:"_id,omitempty"`
	Title            string                 `bson:"title"`
	Description      string                 `bson:"description"`
	ShortDescription string                 `bson:"short_description"`
	StartDate        time.Time              `bson:"start_date"`
	EndDate          time.Time              `bson:"end_date"`
	Location         models.Location        `bson:"location"`
	EventType        string                 `bson:"event_type"`
	AgeRange         models.AgeRange        `bson:"age_range"`
	RegistrationURL  string                 `bson:"registration_url"`
	Price            models.Price           `bson:"price"`
	OrganizerID      primitive.ObjectID     `bson:"organizer_id"`
	CreatedBy        primitive.ObjectID     `bson:"created_by"`
	State            models.ModerationState `bson:"state"`
	Images           []string               `bson:"images"`
	Tags             []string               `bson:"tags"`
	CreatedAt        time.Time              `bson:"created_at"`
	UpdatedAt        time.Time              `bson:"updated_at"`
}

func (d *eventDoc) model() *models.Event {
	return &models.Event{
		ID:               d.ID.Hex(),
		Title:            d.Title,
		Description:      d.Description,
		ShortDescription: d.ShortDescription,
		StartDate:        d.StartDate,
		EndDate:          d.EndDate,
		Location:         d.Location,
		EventType:        d.EventType,
		AgeRange:         d.AgeRange,
		RegistrationURL:  d.RegistrationURL,
		Price:            d.Price,
		OrganizerID:      d.OrganizerID.Hex(),
		CreatedBy:        d.CreatedBy.Hex(),
		State:            d.State,
		Images:           nonNil(d.Images),
		Tags:             nonNil(d.Tags),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// Events persists events in the events collection.
type Events struct {
	col *mongo.Collection
}

// GetByID returns an event by ID.
func (r *Events) GetByID(ctx context.Context, id string) (*models.Event, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var d eventDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, mapErr("get event", err)
	}
	return d.model(), nil
}

// GetByIDs returns the events that exist among ids, soonest first.
func (r *Events) GetByIDs(ctx context.Context, ids []string) ([]*models.Event, error) {
	oids := parseIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
	if err != nil {
		return nil, mapErr("get events", err)
	}
	list, err := decodeAll(ctx, cur, (*eventDoc).model)
	return list, mapErr("get events", err)
}

// Create inserts an event.
func (r *Events) Create(ctx context.Context, e *models.Event) error {
	organizer, err := parseID(e.OrganizerID)
	if err != nil {
		return err
	}
	creator, err := parseID(e.CreatedBy)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	d := eventDoc{
		Title:            e.Title,
		Description:      e.Description,
		ShortDescription: e.ShortDescription,
		StartDate:        e.StartDate,
		EndDate:          e.EndDate,
		Location:         e.Location,
		EventType:        e.EventType,
		AgeRange:         e.AgeRange,
		RegistrationURL:  e.RegistrationURL,
		Price:            e.Price,
		OrganizerID:      organizer,
		CreatedBy:        creator,
		State:            e.State,
		Images:           nonNil(e.Images),
		Tags:             nonNil(e.Tags),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	res, err := r.col.InsertOne(ctx, d)
	if err != nil {
		return mapErr("create event", err)
	}
	e.ID = res.InsertedID.(primitive.ObjectID).Hex()
	e.CreatedAt, e.UpdatedAt = now, now
	return nil
}

// Update applies the patch and optional state in one document write.
func (r *Events) Update(ctx context.Context, id string, patch models.EventPatch, state *models.ModerationState) (*models.Event, error) {
	set := eventSet(patch)
	if state != nil {
		set["state"] = *state
	}
	return r.set(ctx, "update event", id, set)
}

// SetState writes only the moderation state.
func (r *Events) SetState(ctx context.Context, id string, state models.ModerationState) (*models.Event, error) {
	return r.set(ctx, "set event state", id, bson.M{"state": state})
}

// Delete removes an event by ID.
func (r *Events) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mapErr("delete event", err)
	}
	if res.DeletedCount == 0 {
		return mapErr("delete event", mongo.ErrNoDocuments)
	}
	return nil
}

// List returns one page of matching events and the total match count.
func (r *Events) List(ctx context.Context, f store.EventFilter, sort store.Sort, page store.Page) ([]*models.Event, int64, error) {
	filter := eventFilter(f)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapErr("count events", err)
	}
	cur, err := r.col.Find(ctx, filter, findOptions(eventSort(sort), page))
	if err != nil {
		return nil, 0, mapErr("list events", err)
	}
	list, err := decodeAll(ctx, cur, (*eventDoc).model)
	if err != nil {
		return nil, 0, mapErr("list events", err)
	}
	return list, total, nil
}

func (r *Events) set(ctx context.Context, op, id string, set bson.M) (*models.Event, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now().UTC()
	var d eventDoc
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return d.model(), nil
}

func eventFilter(f store.EventFilter) bson.D {
	filter := approvedCondition(bson.D{}, f.Approved)
	if f.City != "" {
		filter = append(filter, bson.E{Key: "location.city", Value: f.City})
	}
	if f.StartFrom != nil {
		filter = append(filter, bson.E{Key: "start_date", Value: bson.M{"$gte": *f.StartFrom}})
	}
	if f.EndUntil != nil {
		filter = append(filter, bson.E{Key: "end_date", Value: bson.M{"$lte": *f.EndUntil}})
	}
	if f.EventType != "" {
		filter = append(filter, bson.E{Key: "event_type", Value: f.EventType})
	}
	if f.MaxAge != nil {
		filter = append(filter, bson.E{Key: "age_range.min", Value: bson.M{"$lte": *f.MaxAge}})
	}
	if f.MinAge != nil {
		filter = append(filter, bson.E{Key: "age_range.max", Value: bson.M{"$gte": *f.MinAge}})
	}
	if f.OrganizerID != "" {
		// an unparsable id matches nothing
		oid, _ := primitive.ObjectIDFromHex(f.OrganizerID)
		filter = append(filter, bson.E{Key: "organizer_id", Value: oid})
	}
	if f.Search != "" {
		re := containsRegex(f.Search)
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
		}})
	}
	return filter
}

func eventSort(sort store.Sort) bson.D {
	switch sort {
	case store.SortStartDesc:
		return bson.D{{Key: "start_date", Value: -1}, {Key: "_id", Value: 1}}
	case store.SortCreatedDesc:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	case store.SortNameAsc:
		return bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}}
	}
}

func eventSet(p models.EventPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.ShortDescription != nil {
		set["short_description"] = *p.ShortDescription
	}
	if p.StartDate != nil {
		set["start_date"] = *p.StartDate
	}
	if p.EndDate != nil {
		set["end_date"] = *p.EndDate
	}
	if p.Location != nil {
		set["location"] = *p.Location
	}
	if p.EventType != nil {
		set["event_type"] = *p.EventType
	}
	if p.AgeRange != nil {
		set["age_range"] = *p.AgeRange
	}
	if p.RegistrationURL != nil {
		set["registration_url"] = *p.RegistrationURL
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Images != nil {
		set["images"] = nonNil(*p.Images)
	}
	if p.Tags != nil {
		set["tags"] = nonNil(*p.Tags)
	}
	return set
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
