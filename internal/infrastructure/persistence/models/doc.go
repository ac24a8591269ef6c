// Package models contains the GORM persistence models of the engine. Domain
// types carry no ORM tags; each model converts with ToDomain and a
// ...ModelFromDomain constructor.
//
// Structure:
//   - base.go: shared id/timestamp/version columns
//   - catalog.go: products and the stock adjustment audit trail
//   - bom.go: bills of materials and their items
//   - production.go: production orders and records
//   - inventory.go: batches, batch movements, counts and count items
package models
