// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync/atomic"
	"testing"

	"appx/internal/database"
	"appx/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewTestDB returns a fresh in-memory SQLite database with every table migrated.
// The pool is limited to one connection so the database lives as long as the test.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:appx_test_%d?mode=memory&cache=shared&_foreign_keys=1", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with notifications enabled.
func CreateUser(t testing.TB, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	return CreateUserWithPreference(t, db, name, email, true)
}

// CreateUserWithPreference inserts a user and its notification preference row.
func CreateUserWithPreference(t testing.TB, db *gorm.DB, name, email string, notificationsEnabled bool) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, PasswordHash: "x"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	pref := &models.NotificationPreference{UserID: u.ID, NotificationsEnabled: notificationsEnabled}
	if err := db.Create(pref).Error; err != nil {
		t.Fatalf("create preference for %s: %v", email, err)
	}
	return u
}

// CreatePost inserts a post authored by authorID.
func CreatePost(t testing.TB, db *gorm.DB, authorID uint, text string) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: authorID, Text: text}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// Notifications returns every notification addressed to recipientID, oldest first.
func Notifications(t testing.TB, db *gorm.DB, recipientID uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	if err := db.Where("destinatario_id = ?", recipientID).Order("id_notif ASC").Find(&out).Error; err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return out
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
