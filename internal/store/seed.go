package store

import (
	"fmt"

	"tableside/restaurant-service/internal/models"
)

type SeedPasswords struct {
	Admin   string
	Kitchen string
	Waiter  string
	// Cost is the bcrypt cost; zero uses bcrypt.DefaultCost.
	Cost int
}

// Seed is the content written to empty collections on first start.
type Seed struct {
	Users      []models.User
	Categories []models.Category
	MenuItems  []models.MenuItem
	Tables     []models.Table
}

func DefaultSeed(passwords SeedPasswords) (Seed, error) {
	accounts := []struct {
		username string
		password string
		role     models.Role
	}{
		{"admin", passwords.Admin, models.RoleAdmin},
		{"kitchen", passwords.Kitchen, models.RoleKitchen},
		{"waiter", passwords.Waiter, models.RoleWaiter},
	}
	users := make([]models.User, 0, len(accounts))
	for _, account := range accounts {
		if account.password == "" {
			return Seed{}, fmt.Errorf("seed password for %s is empty", account.username)
		}
		hash, err := HashPassword(account.password, passwords.Cost)
		if err != nil {
			return Seed{}, fmt.Errorf("hash %s password: %w", account.username, err)
		}
		users = append(users, models.User{Username: account.username, PasswordHash: hash, Role: account.role})
	}

	return Seed{
		Users: users,
		Categories: []models.Category{
			{CategoryID: "1", Name: "Main Courses"},
			{CategoryID: "2", Name: "Drinks"},
			{CategoryID: "3", Name: "Desserts"},
			{CategoryID: "4", Name: "Starters"},
		},
		MenuItems: []models.MenuItem{
			{ItemID: "1", Name: "Grilled Meatballs", Price: 120, CategoryID: "1"},
			{ItemID: "2", Name: "Chicken Shish", Price: 110, CategoryID: "1"},
			{ItemID: "3", Name: "Mixed Grill", Price: 180, CategoryID: "1"},
			{ItemID: "4", Name: "Ayran", Price: 15, CategoryID: "2"},
			{ItemID: "5", Name: "Cola", Price: 20, CategoryID: "2"},
			{ItemID: "6", Name: "Kunefe", Price: 80, CategoryID: "3"},
			{ItemID: "7", Name: "Baklava", Price: 70, CategoryID: "3"},
			{ItemID: "8", Name: "Lentil Soup", Price: 35, CategoryID: "4"},
		},
		Tables: DefaultTables(),
	}, nil
}

func DefaultTables() []models.Table {
	tables := make([]models.Table, 0, models.TableCount)
	for number := 1; number <= models.TableCount; number++ {
		tables = append(tables, models.Table{Number: number, Status: models.TableEmpty})
	}
	return tables
}
