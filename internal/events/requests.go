package events

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/pkg/utils"
)

// CreateEventRequest is the body for POST /events.
type CreateEventRequest struct {
	Title            string          `json:"title" binding:"required"`
	Description      string          `json:"description" binding:"required"`
	ShortDescription string          `json:"shortDescription" binding:"required"`
	StartDate        time.Time       `json:"startDate" binding:"required"`
	EndDate          time.Time       `json:"endDate" binding:"required"`
	Location         models.Location `json:"location"`
	EventType        string          `json:"eventType" binding:"required"`
	AgeRange         models.AgeRange `json:"ageRange"`
	RegistrationURL  string          `json:"registrationUrl"`
	Price            *models.Price   `json:"price"`
	Images           []string        `json:"images"`
	Tags             []string        `json:"tags"`
}

// Event builds the event described by the request. Ownership and state are set by the caller.
func (r CreateEventRequest) Event() *models.Event {
	price := models.DefaultPrice()
	if r.Price != nil {
		price = *r.Price
		if price.Currency == "" {
			price.Currency = models.DefaultCurrency
		}
	}
	images, tags := r.Images, r.Tags
	if images == nil {
		images = []string{}
	}
	if tags == nil {
		tags = []string{}
	}
	return &models.Event{
		Title:            r.Title,
		Description:      r.Description,
		ShortDescription: r.ShortDescription,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Location:         r.Location,
		EventType:        r.EventType,
		AgeRange:         r.AgeRange,
		RegistrationURL:  r.RegistrationURL,
		Price:            price,
		Images:           images,
		Tags:             tags,
	}
}

// UpdateEventRequest is the body for PUT /events/:id. Ownership, organizer and approval
// cannot be changed through it; unknown fields are ignored.
type UpdateEventRequest struct {
	Title            *string          `json:"title"`
	Description      *string          `json:"description"`
	ShortDescription *string          `json:"shortDescription"`
	StartDate        *time.Time       `json:"startDate"`
	EndDate          *time.Time       `json:"endDate"`
	Location         *models.Location `json:"location"`
	EventType        *string          `json:"eventType"`
	AgeRange         *models.AgeRange `json:"ageRange"`
	RegistrationURL  *string          `json:"registrationUrl"`
	Price            *models.Price    `json:"price"`
	Images           *[]string        `json:"images"`
	Tags             *[]string        `json:"tags"`
}

// Patch converts the request to a store patch.
func (r UpdateEventRequest) Patch() models.EventPatch {
	if r.Price != nil && r.Price.Currency == "" {
		r.Price.Currency = models.DefaultCurrency
	}
	return models.EventPatch{
		Title:            r.Title,
		Description:      r.Description,
		ShortDescription: r.ShortDescription,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Location:         r.Location,
		EventType:        r.EventType,
		AgeRange:         r.AgeRange,
		RegistrationURL:  r.RegistrationURL,
		Price:            r.Price,
		Images:           r.Images,
		Tags:             r.Tags,
	}
}

// parseFilter reads the listing filters from the query string. Approval is set by the caller.
func parseFilter(c *gin.Context) (store.EventFilter, error) {
	f := store.EventFilter{
		City:        c.Query("city"),
		EventType:   c.Query("eventType"),
		OrganizerID: c.Query("organizerId"),
		Search:      c.Query("search"),
	}
	var problems []string
	var err error
	if f.StartFrom, err = utils.QueryTime(c, "startDate"); err != nil {
		problems = append(problems, err.Error())
	}
	if f.EndUntil, err = utils.QueryTime(c, "endDate"); err != nil {
		problems = append(problems, err.Error())
	}
	if f.MinAge, err = utils.QueryInt(c, "minAge"); err != nil {
		problems = append(problems, err.Error())
	}
	if f.MaxAge, err = utils.QueryInt(c, "maxAge"); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return store.EventFilter{}, models.Invalid(problems...)
	}
	return f, nil
}
