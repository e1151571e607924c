package domain

import (
	"time"

	"gorm.io/datatypes"

	"github.com/ncpierced1371/throttle-meet-backend/pkg/database"
)

// UserModel is the GORM model for the users table. FollowerCount and
// FollowingCount are materialized from the follows table and only ever
// written by a COUNT refresh.
type UserModel struct {
	ID             string               `gorm:"primaryKey;type:varchar(36)"`
	DisplayName    string               `gorm:"column:display_name;type:varchar(100);not null;index"`
	ImageURL       string               `gorm:"column:image_url;type:varchar(512)"`
	Bio            string               `gorm:"column:bio;type:text"`
	Interests      database.StringArray `gorm:"column:interests"`
	CarMake        string               `gorm:"column:car_make;type:varchar(64);index:idx_users_car"`
	CarModel       string               `gorm:"column:car_model;type:varchar(64);index:idx_users_car"`
	CarYear        int                  `gorm:"column:car_year"`
	FollowerCount  int64                `gorm:"column:follower_count;not null;default:0"`
	FollowingCount int64                `gorm:"column:following_count;not null;default:0"`
	CreatedAt      time.Time            `gorm:"autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

// FollowModel is the GORM model for the follows table. One row is one
// directed edge; the pair is unique.
type FollowModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	FollowerID  string    `gorm:"column:follower_id;type:varchar(36);not null;uniqueIndex:uidx_follow_pair,priority:1"`
	FollowingID string    `gorm:"column:following_id;type:varchar(36);not null;uniqueIndex:uidx_follow_pair,priority:2;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (FollowModel) TableName() string { return "follows" }

// EventModel is the GORM model for the events table. CurrentParticipants
// is materialized from registered rows in event_registrations.
type EventModel struct {
	ID                  string    `gorm:"primaryKey;type:varchar(36)"`
	OrganizerID         string    `gorm:"column:organizer_id;type:varchar(36);not null;index"`
	Title               string    `gorm:"column:title;type:varchar(200);not null"`
	Description         string    `gorm:"column:description;type:text"`
	RallyType           string    `gorm:"column:rally_type;type:varchar(50);index"`
	Status              string    `gorm:"column:status;type:varchar(20);not null;default:'published'"`
	IsPublic            bool      `gorm:"column:is_public;not null"`
	StartDate           time.Time `gorm:"column:start_date;index"`
	Location            string    `gorm:"column:location;type:varchar(255)"`
	EntryFee            float64   `gorm:"column:entry_fee;not null;default:0"`
	CoverImageURL       string    `gorm:"column:cover_image_url;type:varchar(512)"`
	MaxParticipants     *int      `gorm:"column:max_participants"`
	CurrentParticipants int       `gorm:"column:current_participants;not null;default:0"`
	RequiresApproval    bool      `gorm:"column:requires_approval;not null;default:false"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

func (EventModel) TableName() string { return "events" }

// RegistrationModel is the GORM model for the event_registrations table.
// Cancelled rows are kept; at most one non-cancelled row exists per
// (event_id, user_id), enforced inside the create transaction.
type RegistrationModel struct {
	ID                  string         `gorm:"primaryKey;type:varchar(26)"`
	EventID             string         `gorm:"column:event_id;type:varchar(36);not null;index:idx_reg_event_user"`
	UserID              string         `gorm:"column:user_id;type:varchar(36);not null;index:idx_reg_event_user;index"`
	Status              string         `gorm:"column:status;type:varchar(20);not null;index"`
	CarDetails          datatypes.JSON `gorm:"column:car_details"`
	SpecialRequirements string         `gorm:"column:special_requirements;type:text"`
	EmergencyContact    datatypes.JSON `gorm:"column:emergency_contact"`
	CancelledAt         *time.Time     `gorm:"column:cancelled_at"`
	CreatedAt           time.Time      `gorm:"autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime"`
}

func (RegistrationModel) TableName() string { return "event_registrations" }

// PostModel is the GORM model for the posts table.
type PostModel struct {
	ID        string               `gorm:"primaryKey;type:varchar(36)"`
	UserID    string               `gorm:"column:user_id;type:varchar(36);not null;index"`
	Content   string               `gorm:"column:content;type:text"`
	ImageURL  string               `gorm:"column:image_url;type:varchar(512)"`
	Hashtags  database.StringArray `gorm:"column:hashtags"`
	CreatedAt time.Time            `gorm:"autoCreateTime;index"`
}

func (PostModel) TableName() string { return "posts" }

// RouteModel is the GORM model for the routes table.
type RouteModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	CreatorID   string    `gorm:"column:creator_id;type:varchar(36);not null;index"`
	Name        string    `gorm:"column:name;type:varchar(200);not null"`
	Description string    `gorm:"column:description;type:text"`
	DistanceKM  float64   `gorm:"column:distance_km"`
	Difficulty  string    `gorm:"column:difficulty;type:varchar(20)"`
	IsPublic    bool      `gorm:"column:is_public;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
}

func (RouteModel) TableName() string { return "routes" }

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&UserModel{},
		&FollowModel{},
		&EventModel{},
		&RegistrationModel{},
		&PostModel{},
		&RouteModel{},
	}
}
