// Package database opens the local SQLite database and migrates its tables.
//
// Each table has a sub-package with a Repository built on the shared
// *gorm.DB:
//
//	database/
//	├── database.go  # Connection setup and migrations
//	├── books/       # Catalog entries (catalog.BookSource, catalog.BookWriter)
//	├── records/     # Reading records and highlights (records.Store)
//	├── requests/    # Book requests and their delivery state (requests.Store)
//	└── users/       # Local accounts (auth.UserStore)
//
// Typical wiring:
//
//	db, err := database.NewDatabase("./shelf.db")
//	store := records.NewRepository(db.DB)
//	catalog := catalog.NewService(books.NewRepository(db.DB), store, 5*time.Minute)
//
// When the Supabase backend is selected, books and records come from
// internal/supabase instead and this database only holds users, sessions
// and book requests.
package database
