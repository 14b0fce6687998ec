// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// User is an account. The local part of Email doubles as the @mention handle.
type User struct {
	ID           uint       `gorm:"column:id_usuario;primaryKey" json:"id"`
	Name         string     `gorm:"column:nome;size:100;not null" json:"name"`
	Email        string     `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:senha_hash;not null" json:"-"`
	Phone        string     `gorm:"column:telefone;size:20" json:"phone,omitempty"`
	BirthDate    *time.Time `gorm:"column:data_nasc;type:date" json:"birth_date,omitempty"`
	Bio          string     `gorm:"column:biografia;type:text" json:"bio"`
	Location     string     `gorm:"column:localizacao;size:100" json:"location"`
	AvatarURL    string     `gorm:"column:foto_perfil_url" json:"avatar_url"`
	CreatedAt    time.Time  `gorm:"column:criado_em;autoCreateTime" json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "usuario"
}

// Handle returns the mention handle for the user: the email local part.
func (u *User) Handle() string {
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// UserSummary is the compact author view embedded in posts, comments and lists.
type UserSummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Summary returns the compact view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}

// UserProfile is the full profile returned when no block separates viewer and owner.
type UserProfile struct {
	User
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	IsBlocked      bool  `json:"is_blocked"`
}

// BlockedProfile is the reduced profile returned when a block exists either way.
type BlockedProfile struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	IsBlocked bool   `json:"is_blocked"`
}

// NotificationPreference holds a user's opt-in for notifications.
type NotificationPreference struct {
	UserID               uint `gorm:"column:id_usuario;primaryKey;autoIncrement:false" json:"user_id"`
	NotificationsEnabled bool `gorm:"column:notificacoes_ativas;not null" json:"notifications_enabled"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the database table name for NotificationPreference.
func (NotificationPreference) TableName() string {
	return "configuracao_usuario"
}

// PasswordReset is a single-use token allowing a password change.
type PasswordReset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:usuario_id;not null;index" json:"user_id"`
	Token     string    `gorm:"column:token;size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"column:expira_em;not null" json:"expires_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the database table name for PasswordReset.
func (PasswordReset) TableName() string {
	return "redefinicao_senha"
}
