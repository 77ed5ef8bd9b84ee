// Package store is the SQLite persistence layer for the chat orchestration
// core. It implements the narrow Store interfaces internal/toolregistry,
// internal/contextbuilder, and internal/analysis each define, plus
// internal/toolregistry/websearch.Cache, against one shared schema.
//
// Grounded on _examples/mercator-hq-jupiter/pkg/limits/storage/sqlite.go's
// modernc.org/sqlite usage: WAL journal mode via DSN, a single-writer
// connection pool, INSERT ... ON CONFLICT DO UPDATE for idempotent
// upserts, and plain database/sql with hand-scanned rows rather than an
// ORM, matching the absence of any ORM dependency across the example pack.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the shared *sql.DB handle every store method operates on.
type DB struct {
	conn *sql.DB
}

// Open creates (or reuses) the SQLite file at path, applies the schema, and
// returns a ready DB. path may be ":memory:" for tests.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.ExecContext(context.Background(), schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user',
	token_version INTEGER NOT NULL DEFAULT 0,
	force_password_change INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	ai_provider_id TEXT NOT NULL DEFAULT '',
	encrypted_api_key BLOB,
	reasoning_model TEXT NOT NULL DEFAULT '',
	utility_model TEXT NOT NULL DEFAULT '',
	deep_think_model TEXT NOT NULL DEFAULT '',
	age_years INTEGER NOT NULL DEFAULT 0,
	sex TEXT NOT NULL DEFAULT '',
	height_cm REAL NOT NULL DEFAULT 0,
	weight_kg REAL NOT NULL DEFAULT 0,
	goal_weight REAL NOT NULL DEFAULT 0,
	height_unit TEXT NOT NULL DEFAULT 'cm',
	weight_unit TEXT NOT NULL DEFAULT 'kg',
	hydration_unit TEXT NOT NULL DEFAULT 'ml',
	timezone TEXT NOT NULL DEFAULT 'UTC',
	fitness_level TEXT NOT NULL DEFAULT '',
	medical_conditions TEXT NOT NULL DEFAULT '[]',
	dietary_preferences TEXT NOT NULL DEFAULT '[]',
	health_goals TEXT NOT NULL DEFAULT '[]',
	family_history TEXT NOT NULL DEFAULT '[]',
	medications TEXT NOT NULL DEFAULT '[]',
	supplements TEXT NOT NULL DEFAULT '[]',
	usage_reset_at INTEGER,
	intake_completed_at INTEGER,
	intake_skipped_at INTEGER,
	system_prompt_override TEXT NOT NULL DEFAULT '',
	specialist_prompts TEXT NOT NULL DEFAULT '{}',
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS food_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	logged_at INTEGER NOT NULL,
	meal_label TEXT NOT NULL DEFAULT '',
	items TEXT NOT NULL DEFAULT '[]',
	calories_kcal REAL NOT NULL DEFAULT 0,
	protein_g REAL NOT NULL DEFAULT 0,
	carbs_g REAL NOT NULL DEFAULT 0,
	fat_g REAL NOT NULL DEFAULT 0,
	fiber_g REAL NOT NULL DEFAULT 0,
	sodium_mg REAL NOT NULL DEFAULT 0,
	servings REAL NOT NULL DEFAULT 1,
	meal_template_id INTEGER,
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_food_logs_user_time ON food_logs(user_id, logged_at);

CREATE TABLE IF NOT EXISTS hydration_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	logged_at INTEGER NOT NULL,
	volume_ml REAL NOT NULL DEFAULT 0,
	source_unit TEXT NOT NULL DEFAULT 'ml',
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hydration_logs_user_time ON hydration_logs(user_id, logged_at);

CREATE TABLE IF NOT EXISTS vitals_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	logged_at INTEGER NOT NULL,
	bp_systolic INTEGER NOT NULL DEFAULT 0,
	bp_diastolic INTEGER NOT NULL DEFAULT 0,
	heart_rate INTEGER NOT NULL DEFAULT 0,
	weight_kg REAL NOT NULL DEFAULT 0,
	blood_glucose REAL NOT NULL DEFAULT 0,
	temperature_c REAL NOT NULL DEFAULT 0,
	spo2 REAL NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vitals_logs_user_time ON vitals_logs(user_id, logged_at);

CREATE TABLE IF NOT EXISTS exercise_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	logged_at INTEGER NOT NULL,
	exercise_type TEXT NOT NULL DEFAULT '',
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	intensity TEXT NOT NULL DEFAULT '',
	calories_kcal REAL NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exercise_logs_user_time ON exercise_logs(user_id, logged_at);

CREATE TABLE IF NOT EXISTS supplement_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	logged_at INTEGER NOT NULL,
	item_type TEXT NOT NULL,
	item_name TEXT NOT NULL DEFAULT '',
	dose TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_supplement_logs_user_time ON supplement_logs(user_id, logged_at);

CREATE TABLE IF NOT EXISTS fasting_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	fast_start INTEGER NOT NULL,
	fast_end INTEGER,
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fasting_logs_user_time ON fasting_logs(user_id, fast_start);

CREATE TABLE IF NOT EXISTS sleep_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	sleep_start INTEGER NOT NULL,
	sleep_end INTEGER NOT NULL,
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	quality INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sleep_logs_user_time ON sleep_logs(user_id, sleep_start);

CREATE TABLE IF NOT EXISTS daily_checklist_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	target_date TEXT NOT NULL,
	item_type TEXT NOT NULL,
	item_name TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (user_id, target_date, item_type, item_name)
);
CREATE INDEX IF NOT EXISTS idx_checklist_user_date ON daily_checklist_items(user_id, target_date);

CREATE TABLE IF NOT EXISTS meal_templates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	aliases TEXT NOT NULL DEFAULT '[]',
	ingredients TEXT NOT NULL DEFAULT '[]',
	base_servings REAL NOT NULL DEFAULT 1,
	calories_kcal REAL NOT NULL DEFAULT 0,
	protein_g REAL NOT NULL DEFAULT 0,
	carbs_g REAL NOT NULL DEFAULT 0,
	fat_g REAL NOT NULL DEFAULT 0,
	is_archived INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_meal_templates_user_name ON meal_templates(user_id, normalized_name);

CREATE TABLE IF NOT EXISTS meal_template_versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	meal_template_id INTEGER NOT NULL REFERENCES meal_templates(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	ingredients TEXT NOT NULL DEFAULT '[]',
	base_servings REAL NOT NULL DEFAULT 1,
	calories_kcal REAL NOT NULL DEFAULT 0,
	protein_g REAL NOT NULL DEFAULT 0,
	carbs_g REAL NOT NULL DEFAULT 0,
	fat_g REAL NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS meal_response_signals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	meal_template_id INTEGER,
	food_log_id INTEGER,
	signal TEXT NOT NULL,
	severity INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	image_ref TEXT NOT NULL DEFAULT '',
	specialist TEXT NOT NULL DEFAULT '',
	model_used TEXT NOT NULL DEFAULT '',
	tokens_in INTEGER NOT NULL DEFAULT 0,
	tokens_out INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_user_time ON messages(user_id, created_at);

CREATE TABLE IF NOT EXISTS health_optimization_frameworks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	framework_type TEXT NOT NULL,
	name TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	priority_score INTEGER NOT NULL DEFAULT 50,
	is_active INTEGER NOT NULL DEFAULT 1,
	source TEXT NOT NULL DEFAULT 'manual',
	rationale TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (user_id, normalized_name)
);
CREATE INDEX IF NOT EXISTS idx_frameworks_user_active ON health_optimization_frameworks(user_id, is_active);

CREATE TABLE IF NOT EXISTS analysis_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	run_type TEXT NOT NULL,
	period_start INTEGER NOT NULL,
	period_end INTEGER NOT NULL,
	status TEXT NOT NULL,
	metrics TEXT NOT NULL DEFAULT '{}',
	missing_data TEXT NOT NULL DEFAULT '[]',
	risk_flags TEXT NOT NULL DEFAULT '[]',
	synthesis TEXT NOT NULL DEFAULT '{}',
	markdown_summary TEXT NOT NULL DEFAULT '',
	reasoning_model TEXT NOT NULL DEFAULT '',
	utility_model TEXT NOT NULL DEFAULT '',
	deep_model TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	trigger TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	completed_at INTEGER,
	UNIQUE (user_id, run_type, period_start, period_end)
);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_user_type ON analysis_runs(user_id, run_type, period_end);

CREATE TABLE IF NOT EXISTS analysis_proposals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	user_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	title TEXT NOT NULL,
	rationale TEXT NOT NULL DEFAULT '',
	confidence REAL,
	payload TEXT NOT NULL DEFAULT '{}',
	target TEXT NOT NULL DEFAULT '',
	diff_markdown TEXT NOT NULL DEFAULT '',
	requires_approval INTEGER NOT NULL DEFAULT 1,
	merged_ids TEXT NOT NULL DEFAULT '[]',
	merge_count INTEGER NOT NULL DEFAULT 0,
	reviewer_id INTEGER,
	review_note TEXT NOT NULL DEFAULT '',
	reviewed_at INTEGER,
	applied_at INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_proposals_user_status ON analysis_proposals(user_id, status);

CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	category TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '{}',
	is_read INTEGER NOT NULL DEFAULT 0,
	read_at INTEGER,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, is_read);

CREATE TABLE IF NOT EXISTS request_telemetry_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	first_byte_ms INTEGER NOT NULL DEFAULT 0,
	failure_json TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_turn_telemetry (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	message_id INTEGER NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	specialist TEXT NOT NULL DEFAULT '',
	utility_calls INTEGER NOT NULL DEFAULT 0,
	reasoning_calls INTEGER NOT NULL DEFAULT 0,
	deep_calls INTEGER NOT NULL DEFAULT 0,
	utility_tokens_in INTEGER NOT NULL DEFAULT 0,
	utility_tokens_out INTEGER NOT NULL DEFAULT 0,
	reasoning_tokens_in INTEGER NOT NULL DEFAULT 0,
	reasoning_tokens_out INTEGER NOT NULL DEFAULT 0,
	deep_tokens_in INTEGER NOT NULL DEFAULT 0,
	deep_tokens_out INTEGER NOT NULL DEFAULT 0,
	first_token_ms INTEGER NOT NULL DEFAULT 0,
	total_ms INTEGER NOT NULL DEFAULT 0,
	failure_json TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	specialist TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS websearch_cache (
	cache_key TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	provider TEXT NOT NULL,
	results TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Unix()
}

func timePtrFromUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
