package domain

import (
	"encoding/json"
	"time"
)

// CarInfo is the car a user drives. Used for suggestion ranking only.
type CarInfo struct {
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
}

// User is a profile with its social counters.
type User struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	ImageURL       string    `json:"image_url,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	Interests      []string  `json:"interests"`
	Car            CarInfo   `json:"car"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserSummary is one row of a follower, following or suggestion page.
type UserSummary struct {
	ID             string  `json:"id"`
	DisplayName    string  `json:"display_name"`
	ImageURL       string  `json:"image_url,omitempty"`
	Car            CarInfo `json:"car"`
	FollowerCount  int64   `json:"follower_count"`
	FollowingCount int64   `json:"following_count"`
	CarSimilarity  int     `json:"car_similarity,omitempty"`
}

// UserPage is a page of user summaries. Total counts the whole set.
type UserPage struct {
	Users  []UserSummary `json:"users"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ProfileInput carries the writable profile fields.
type ProfileInput struct {
	DisplayName string   `json:"display_name"`
	ImageURL    string   `json:"image_url"`
	Bio         string   `json:"bio"`
	Interests   []string `json:"interests"`
	Car         CarInfo  `json:"car"`
}

// Event is an organized meet with a participant counter.
type Event struct {
	ID                  string    `json:"id"`
	OrganizerID         string    `json:"organizer_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	RallyType           string    `json:"rally_type,omitempty"`
	Status              string    `json:"status"`
	IsPublic            bool      `json:"is_public"`
	StartDate           time.Time `json:"start_date"`
	Location            string    `json:"location,omitempty"`
	EntryFee            float64   `json:"entry_fee"`
	CoverImageURL       string    `json:"cover_image_url,omitempty"`
	MaxParticipants     *int      `json:"max_participants"`
	CurrentParticipants int       `json:"current_participants"`
	RequiresApproval    bool      `json:"requires_approval"`
	CreatedAt           time.Time `json:"created_at"`
}

// EventInput carries the writable event fields.
type EventInput struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	RallyType        string    `json:"rally_type"`
	IsPublic         *bool     `json:"is_public"`
	StartDate        time.Time `json:"start_date"`
	Location         string    `json:"location"`
	EntryFee         float64   `json:"entry_fee"`
	MaxParticipants  *int      `json:"max_participants"`
	RequiresApproval bool      `json:"requires_approval"`
}

// EventSummary is an event as listed in a feed. It omits the participant
// counter so a cached feed never shows a stale count.
type EventSummary struct {
	ID              string    `json:"id"`
	OrganizerID     string    `json:"organizer_id"`
	Title           string    `json:"title"`
	RallyType       string    `json:"rally_type,omitempty"`
	StartDate       time.Time `json:"start_date"`
	Location        string    `json:"location,omitempty"`
	EntryFee        float64   `json:"entry_fee"`
	CoverImageURL   string    `json:"cover_image_url,omitempty"`
	MaxParticipants *int      `json:"max_participants"`
}

// CarDetails describes the car a participant brings to an event.
type CarDetails struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year,omitempty"`
	Color string `json:"color,omitempty"`
}

// EmergencyContact is who to call for a participant.
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// RegistrationDetails are the participant-supplied fields of a registration.
type RegistrationDetails struct {
	CarDetails          *CarDetails       `json:"car_details,omitempty"`
	SpecialRequirements string            `json:"special_requirements,omitempty"`
	EmergencyContact    *EmergencyContact `json:"emergency_contact,omitempty"`
}

// Registration is one user's place on an event.
type Registration struct {
	ID        string             `json:"id"`
	EventID   string             `json:"event_id"`
	UserID    string             `json:"user_id"`
	Status    RegistrationStatus `json:"status"`
	RegistrationDetails
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RegistrationPage is a page of registrations. Limit is the page size
// actually applied.
type RegistrationPage struct {
	Registrations []Registration `json:"registrations"`
	Total         int64          `json:"total"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
}

// RegistrationFilter narrows ListRegistrations. Empty fields match all.
type RegistrationFilter struct {
	EventID string
	UserID  string
	Status  RegistrationStatus
	Limit   int
	Offset  int
}

// Post is a social post shown in feeds.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	Hashtags  []string  `json:"hashtags"`
	CreatedAt time.Time `json:"created_at"`
}

// PostInput carries the writable post fields.
type PostInput struct {
	Content  string   `json:"content"`
	ImageURL string   `json:"image_url"`
	Hashtags []string `json:"hashtags"`
}

// Route is a shared driving route.
type Route struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	DistanceKM  float64   `json:"distance_km"`
	Difficulty  string    `json:"difficulty,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RouteInput carries the writable route fields.
type RouteInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	DistanceKM  float64 `json:"distance_km"`
	Difficulty  string  `json:"difficulty"`
	IsPublic    *bool   `json:"is_public"`
}

// Feed types accepted by FeedQuery.Type.
const (
	FeedAll         = "all"
	FeedSocial      = "social"
	FeedContent     = "content"
	FeedFollowers   = "followers"
	FeedFollowing   = "following"
	FeedSuggestions = "suggestions"
	FeedPosts       = "posts"
	FeedEvents      = "events"
	FeedRoutes      = "routes"
)

// FeedQuery selects which sections a feed carries and how they are paged.
type FeedQuery struct {
	Type      string
	Limit     int
	Offset    int
	RallyType string
	Hashtag   string
}

// Feed is the merged read model. Sections not selected by the query are nil.
type Feed struct {
	Type        string         `json:"type"`
	Followers   *UserPage      `json:"followers,omitempty"`
	Following   *UserPage      `json:"following,omitempty"`
	Suggestions *UserPage      `json:"suggestions,omitempty"`
	Posts       []Post         `json:"posts,omitempty"`
	Events      []EventSummary `json:"events,omitempty"`
	Routes      []Route        `json:"routes,omitempty"`
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
}

// UploadTarget is a presigned upload destination.
type UploadTarget struct {
	UploadURL string    `json:"upload_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToDomain converts the row into its API shape.
func (m *UserModel) ToDomain() *User {
	interests := []string(m.Interests)
	if interests == nil {
		interests = []string{}
	}
	return &User{
		ID:             m.ID,
		DisplayName:    m.DisplayName,
		ImageURL:       m.ImageURL,
		Bio:            m.Bio,
		Interests:      interests,
		Car:            CarInfo{Make: m.CarMake, Model: m.CarModel, Year: m.CarYear},
		FollowerCount:  m.FollowerCount,
		FollowingCount: m.FollowingCount,
		CreatedAt:      m.CreatedAt,
	}
}

// ToSummary converts the row into a list entry.
func (m *UserModel) ToSummary() UserSummary {
	return UserSummary{
		ID:             m.ID,
		DisplayName:    m.DisplayName,
		ImageURL:       m.ImageURL,
		Car:            CarInfo{Make: m.CarMake, Model: m.CarModel, Year: m.CarYear},
		FollowerCount:  m.FollowerCount,
		FollowingCount: m.FollowingCount,
	}
}

func (m *EventModel) ToDomain() *Event {
	return &Event{
		ID:                  m.ID,
		OrganizerID:         m.OrganizerID,
		Title:               m.Title,
		Description:         m.Description,
		RallyType:           m.RallyType,
		Status:              m.Status,
		IsPublic:            m.IsPublic,
		StartDate:           m.StartDate,
		Location:            m.Location,
		EntryFee:            m.EntryFee,
		CoverImageURL:       m.CoverImageURL,
		MaxParticipants:     m.MaxParticipants,
		CurrentParticipants: m.CurrentParticipants,
		RequiresApproval:    m.RequiresApproval,
		CreatedAt:           m.CreatedAt,
	}
}

func (m *EventModel) ToSummary() EventSummary {
	return EventSummary{
		ID:              m.ID,
		OrganizerID:     m.OrganizerID,
		Title:           m.Title,
		RallyType:       m.RallyType,
		StartDate:       m.StartDate,
		Location:        m.Location,
		EntryFee:        m.EntryFee,
		CoverImageURL:   m.CoverImageURL,
		MaxParticipants: m.MaxParticipants,
	}
}

// ToDomain decodes the JSON detail columns. Malformed JSON is dropped
// rather than failing the read.
func (m *RegistrationModel) ToDomain() *Registration {
	r := &Registration{
		ID:      m.ID,
		EventID: m.EventID,
		UserID:  m.UserID,
		Status:  RegistrationStatus(m.Status),
		RegistrationDetails: RegistrationDetails{
			SpecialRequirements: m.SpecialRequirements,
		},
		CancelledAt: m.CancelledAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if len(m.CarDetails) > 0 {
		var car CarDetails
		if json.Unmarshal(m.CarDetails, &car) == nil {
			r.CarDetails = &car
		}
	}
	if len(m.EmergencyContact) > 0 {
		var contact EmergencyContact
		if json.Unmarshal(m.EmergencyContact, &contact) == nil {
			r.EmergencyContact = &contact
		}
	}
	return r
}

func (m *PostModel) ToDomain() Post {
	tags := []string(m.Hashtags)
	if tags == nil {
		tags = []string{}
	}
	return Post{
		ID:        m.ID,
		UserID:    m.UserID,
		Content:   m.Content,
		ImageURL:  m.ImageURL,
		Hashtags:  tags,
		CreatedAt: m.CreatedAt,
	}
}

func (m *RouteModel) ToDomain() Route {
	return Route{
		ID:          m.ID,
		CreatorID:   m.CreatorID,
		Name:        m.Name,
		Description: m.Description,
		DistanceKM:  m.DistanceKM,
		Difficulty:  m.Difficulty,
		CreatedAt:   m.CreatedAt,
	}
}
