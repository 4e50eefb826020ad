package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Camera settings table - persisted control values, one row per
		// control, grouped per device
		`CREATE TABLE IF NOT EXISTS camera_settings (
			group_key TEXT NOT NULL,
			name TEXT NOT NULL,
			value INTEGER NOT NULL,
			PRIMARY KEY (group_key, name)
		)`,

		// Profiles table - named snapshots of camera and pipeline tuning
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			config TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
