package database

import "appx/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.NotificationPreference{},
		&models.PasswordReset{},
		&models.Post{},
		&models.Media{},
		&models.Comment{},
		&models.Reaction{},
		&models.Mention{},
		&models.RelationshipEdge{},
		&models.Notification{},
	}
}
