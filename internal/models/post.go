package models

import "time"

// Post is a publication authored by one user. Text may be empty when media is attached.
type Post struct {
	ID        uint      `gorm:"column:id_pub;primaryKey" json:"id"`
	AuthorID  uint      `gorm:"column:autor_id;not null;index" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Text      string    `gorm:"column:texto;type:text" json:"text"`
	Edited    bool      `gorm:"column:editada;not null" json:"edited"`
	Media     []Media   `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"media"`
	CreatedAt time.Time `gorm:"column:criado_em;autoCreateTime" json:"created_at"`

	// Computed by the feed queries, never persisted.
	LikesCount    int  `gorm:"column:likes_count;->;-:migration" json:"likes_count"`
	CommentsCount int  `gorm:"column:comments_count;->;-:migration" json:"comments_count"`
	Liked         bool `gorm:"column:liked;->;-:migration" json:"liked"`

	Mentions []MentionRef `gorm:"-" json:"mentions"`
}

// MentionRef is a resolved mention rendered alongside a post.
type MentionRef struct {
	UserID uint   `json:"user_id"`
	Handle string `json:"handle"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string {
	return "publicacao"
}

// Media kinds accepted on posts.
const (
	MediaKindImage = "imagem"
	MediaKindVideo = "video"
)

// Media is a file attached to a post.
type Media struct {
	ID     uint   `gorm:"column:id_midia;primaryKey" json:"id"`
	PostID uint   `gorm:"column:pub_id;not null;index" json:"post_id"`
	URL    string `gorm:"column:url;not null" json:"url"`
	Kind   string `gorm:"column:tipo;size:20;not null" json:"kind"`
}

// TableName returns the database table name for Media.
func (Media) TableName() string {
	return "midia"
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        uint      `gorm:"column:id_coment;primaryKey" json:"id"`
	PostID    uint      `gorm:"column:pub_id;not null;index" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID  uint      `gorm:"column:autor_id;not null" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Text      string    `gorm:"column:texto;type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"column:criado_em;autoCreateTime" json:"created_at"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string {
	return "comentario"
}

// Reaction target and kind values.
const (
	ReactionTargetPost = "publicacao"
	ReactionKindLike   = "curtida"
)

// Reaction is a user's reaction on a target. One row per (user, target, target type).
type Reaction struct {
	ID         uint      `gorm:"column:id_reacao;primaryKey" json:"id"`
	UserID     uint      `gorm:"column:usuario_id;not null;uniqueIndex:idx_reacao_unica" json:"user_id"`
	TargetID   uint      `gorm:"column:alvo_id;not null;uniqueIndex:idx_reacao_unica" json:"target_id"`
	TargetType string    `gorm:"column:alvo_tipo;size:20;not null;uniqueIndex:idx_reacao_unica" json:"target_type"`
	Kind       string    `gorm:"column:tipo;size:20;not null" json:"kind"`
	CreatedAt  time.Time `gorm:"column:criado_em;autoCreateTime" json:"created_at"`
}

// TableName returns the database table name for Reaction.
func (Reaction) TableName() string {
	return "reacao"
}

// Mention links a post to a user referenced by @handle in its text.
type Mention struct {
	PostID uint `gorm:"column:pub_id;primaryKey;autoIncrement:false" json:"post_id"`
	UserID uint `gorm:"column:usuario_mencionado_id;primaryKey;autoIncrement:false" json:"user_id"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the database table name for Mention.
func (Mention) TableName() string {
	return "mencao"
}
