package models

import (
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AutoMigrate создает/обновляет все таблицы
func AutoMigrate(db *gorm.DB) error {
	// Мигрируем User
	if err := db.AutoMigrate(&User{}); err != nil {
		log.Printf("❌ AutoMigrate для User failed: %v", err)
		return err
	}
	log.Println("✅ User table migrated successfully")

	// Мигрируем Ingredient (партии склада)
	if err := db.AutoMigrate(&Ingredient{}); err != nil {
		log.Printf("❌ AutoMigrate для Ingredient failed: %v", err)
		return err
	}
	log.Println("✅ Ingredient table migrated successfully")

	// Мигрируем Product
	if err := db.AutoMigrate(&Product{}); err != nil {
		log.Printf("❌ AutoMigrate для Product failed: %v", err)
		return err
	}
	log.Println("✅ Product table migrated successfully")

	// Мигрируем ProductIngredient (строки рецептов)
	if err := db.AutoMigrate(&ProductIngredient{}); err != nil {
		log.Printf("❌ AutoMigrate для ProductIngredient failed: %v", err)
		return err
	}
	log.Println("✅ ProductIngredient table migrated successfully")

	// Мигрируем Order
	if err := db.AutoMigrate(&Order{}); err != nil {
		log.Printf("❌ AutoMigrate для Order failed: %v", err)
		return err
	}
	log.Println("✅ Order table migrated successfully")

	// Мигрируем OrderItem
	if err := db.AutoMigrate(&OrderItem{}); err != nil {
		log.Printf("❌ AutoMigrate для OrderItem failed: %v", err)
		return err
	}
	log.Println("✅ OrderItem table migrated successfully")

	return nil
}

// InitDefaultData создает дефолтного администратора, если пользователей еще нет
func InitDefaultData(db *gorm.DB, adminEmail, adminPassword string) error {
	var existing User
	result := db.Where("email = ?", adminEmail).First(&existing)

	if result.Error == nil {
		// Админ уже существует
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := User{
		Email:        adminEmail,
		PasswordHash: string(passwordHash),
		Name:         "Admin",
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Создан дефолтный админ: email=%s (смените пароль через ADMIN_PASSWORD)", adminEmail)
	return nil
}
