package database

// Timestamps are always written by the application in UTC so that SQLite's
// text comparison of TIMESTAMP columns orders them correctly.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		telegram_chat_id INTEGER UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		korean TEXT NOT NULL,
		english TEXT NOT NULL,
		item_type TEXT NOT NULL DEFAULT 'vocab' CHECK (item_type IN ('vocab', 'grammar')),
		topik_level INTEGER NOT NULL DEFAULT 1 CHECK (topik_level BETWEEN 1 AND 6),
		source TEXT NOT NULL DEFAULT 'seed',
		tags TEXT NOT NULL DEFAULT '[]',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS srs_state (
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		ease_factor REAL NOT NULL DEFAULT 2.5 CHECK (ease_factor >= 1.3),
		interval_days REAL NOT NULL DEFAULT 0 CHECK (interval_days >= 0),
		repetitions INTEGER NOT NULL DEFAULT 0 CHECK (repetitions >= 0),
		next_review TIMESTAMP NOT NULL,
		last_reviewed TIMESTAMP,
		PRIMARY KEY (student_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS mastery (
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		grammar_score REAL NOT NULL DEFAULT 0,
		vocab_score REAL NOT NULL DEFAULT 0,
		formality_score REAL NOT NULL DEFAULT 0,
		overall_score REAL NOT NULL DEFAULT 0,
		practice_count INTEGER NOT NULL DEFAULT 0,
		exposure_count INTEGER NOT NULL DEFAULT 0,
		usage_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		last_practiced TIMESTAMP,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (student_id, item_id),
		CHECK (usage_count <= exposure_count),
		CHECK (error_count <= usage_count)
	)`,
	`CREATE TABLE IF NOT EXISTS encounters (
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		first_seen TIMESTAMP NOT NULL,
		first_practiced TIMESTAMP,
		encounter_count INTEGER NOT NULL DEFAULT 1,
		encounter_type TEXT NOT NULL DEFAULT 'exposed',
		PRIMARY KEY (student_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS curriculum_state (
		student_id INTEGER PRIMARY KEY REFERENCES students(id) ON DELETE CASCADE,
		current_topik_level INTEGER NOT NULL DEFAULT 1,
		current_position INTEGER NOT NULL DEFAULT 0,
		items_introduced INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS student_level_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		estimated_level REAL NOT NULL,
		calculated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS practice_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		item_ids TEXT NOT NULL DEFAULT '[]',
		prompt TEXT NOT NULL DEFAULT '',
		formality TEXT NOT NULL DEFAULT 'polite',
		transcript TEXT NOT NULL DEFAULT '',
		overall_score REAL NOT NULL DEFAULT 0,
		feedback_json TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_level ON items(topik_level, id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_source ON items(source, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_items_korean ON items(korean)`,
	`CREATE INDEX IF NOT EXISTS idx_srs_student_review ON srs_state(student_id, next_review)`,
	`CREATE INDEX IF NOT EXISTS idx_mastery_student ON mastery(student_id, overall_score)`,
	`CREATE INDEX IF NOT EXISTS idx_level_history_student ON student_level_history(student_id, calculated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_practice_log_student ON practice_log(student_id, created_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		telegram_chat_id BIGINT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id BIGSERIAL PRIMARY KEY,
		korean TEXT NOT NULL,
		english TEXT NOT NULL,
		item_type TEXT NOT NULL DEFAULT 'vocab' CHECK (item_type IN ('vocab', 'grammar')),
		topik_level INTEGER NOT NULL DEFAULT 1 CHECK (topik_level BETWEEN 1 AND 6),
		source TEXT NOT NULL DEFAULT 'seed',
		tags TEXT NOT NULL DEFAULT '[]',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS srs_state (
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5 CHECK (ease_factor >= 1.3),
		interval_days DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (interval_days >= 0),
		repetitions INTEGER NOT NULL DEFAULT 0 CHECK (repetitions >= 0),
		next_review TIMESTAMPTZ NOT NULL,
		last_reviewed TIMESTAMPTZ,
		PRIMARY KEY (student_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS mastery (
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		grammar_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		vocab_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		formality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		overall_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		practice_count INTEGER NOT NULL DEFAULT 0,
		exposure_count INTEGER NOT NULL DEFAULT 0,
		usage_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		last_practiced TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (student_id, item_id),
		CHECK (usage_count <= exposure_count),
		CHECK (error_count <= usage_count)
	)`,
	`CREATE TABLE IF NOT EXISTS encounters (
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		first_seen TIMESTAMPTZ NOT NULL,
		first_practiced TIMESTAMPTZ,
		encounter_count INTEGER NOT NULL DEFAULT 1,
		encounter_type TEXT NOT NULL DEFAULT 'exposed',
		PRIMARY KEY (student_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS curriculum_state (
		student_id BIGINT PRIMARY KEY REFERENCES students(id) ON DELETE CASCADE,
		current_topik_level INTEGER NOT NULL DEFAULT 1,
		current_position BIGINT NOT NULL DEFAULT 0,
		items_introduced INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS student_level_history (
		id BIGSERIAL PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		estimated_level DOUBLE PRECISION NOT NULL,
		calculated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS practice_log (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		item_ids TEXT NOT NULL DEFAULT '[]',
		prompt TEXT NOT NULL DEFAULT '',
		formality TEXT NOT NULL DEFAULT 'polite',
		transcript TEXT NOT NULL DEFAULT '',
		overall_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		feedback_json TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_level ON items(topik_level, id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_source ON items(source, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_items_korean ON items(korean)`,
	`CREATE INDEX IF NOT EXISTS idx_srs_student_review ON srs_state(student_id, next_review)`,
	`CREATE INDEX IF NOT EXISTS idx_mastery_student ON mastery(student_id, overall_score)`,
	`CREATE INDEX IF NOT EXISTS idx_level_history_student ON student_level_history(student_id, calculated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_practice_log_student ON practice_log(student_id, created_at)`,
}
