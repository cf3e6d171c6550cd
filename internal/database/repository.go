package database

import (
	"lodyland/internal/database/repositories"
)

// Repository provides access to all database repositories bound to one
// transaction
type Repository struct {
	Players  *repositories.PlayerRepository
	Sessions *repositories.SessionRepository
	Tiles    *repositories.TileRepository
	Stock    *repositories.InventoryRepository
	Lands    *repositories.LandRepository
	Sales    *repositories.CardSalesRepository
	Quests   *repositories.QuestRepository
}

// NewRepository creates a repository collection over q
func NewRepository(q repositories.Querier) *Repository {
	return &Repository{
		Players:  repositories.NewPlayerRepository(q),
		Sessions: repositories.NewSessionRepository(q),
		Tiles:    repositories.NewTileRepository(q),
		Stock:    repositories.NewInventoryRepository(q),
		Lands:    repositories.NewLandRepository(q),
		Sales:    repositories.NewCardSalesRepository(q),
		Quests:   repositories.NewQuestRepository(q),
	}
}
