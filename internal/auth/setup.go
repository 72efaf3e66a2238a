package auth

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Session{})
}

// Bootstrap creates an admin agent when there are no agents yet, so a fresh
// deployment can be logged into. Nothing happens without credentials.
func Bootstrap(db *gorm.DB, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := CreateUser(db, username, password, username, RoleAdmin); err != nil {
		return err
	}
	logrus.Infof("Created bootstrap admin agent %s", username)
	return nil
}
