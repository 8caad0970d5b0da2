package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per tracked body from first sight until tracking ends
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			body_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			height_scale REAL NOT NULL DEFAULT 0
		)`,

		// Hand samples table - recorded limb positions in arrival order
		`CREATE TABLE IF NOT EXISTS hand_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			limb TEXT NOT NULL CHECK(limb IN ('left_hand', 'right_hand')),
			sequence INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			recorded_ms INTEGER NOT NULL
		)`,

		// Limb summaries table - mean and standard deviation of recent height minima
		`CREATE TABLE IF NOT EXISTS limb_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			limb TEXT NOT NULL CHECK(limb IN ('left_hand', 'right_hand')),
			minima_count INTEGER NOT NULL,
			mean_x REAL NOT NULL,
			mean_y REAL NOT NULL,
			mean_z REAL NOT NULL,
			sd_x REAL NOT NULL,
			sd_y REAL NOT NULL,
			sd_z REAL NOT NULL,
			history_len INTEGER NOT NULL,
			computed_ms INTEGER NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_sessions_body_id ON sessions(body_id)`,
		`CREATE INDEX IF NOT EXISTS idx_hand_samples_session_limb ON hand_samples(session_id, limb, sequence)`,
		`CREATE INDEX IF NOT EXISTS idx_limb_summaries_session_limb ON limb_summaries(session_id, limb)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
