package models

import "time"

// RelationshipEdge is a directed follow or block edge. At most one edge exists per ordered pair.
type RelationshipEdge struct {
	FollowerID uint      `gorm:"column:seguidor_id;primaryKey;autoIncrement:false" json:"follower_id"`
	FollowedID uint      `gorm:"column:seguido_id;primaryKey;autoIncrement:false" json:"followed_id"`
	Blocked    bool      `gorm:"column:bloqueado;not null" json:"blocked"`
	CreatedAt  time.Time `gorm:"column:data_relacao" json:"created_at"`

	Follower *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followed *User `gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the database table name for RelationshipEdge.
func (RelationshipEdge) TableName() string {
	return "relacao_usuario"
}

// RelationshipStatus describes the edge from a viewer to another user.
type RelationshipStatus struct {
	Following bool `json:"following"`
	Blocked   bool `json:"blocked"`
}
