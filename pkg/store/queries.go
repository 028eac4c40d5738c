package store

// DBQuery carries one statement in each supported dialect.
type DBQuery struct {
	ID            string
	PostgresQuery string
	SQLiteQuery   string
}

// For returns the statement text for dialect.
func (q DBQuery) For(dialect Dialect) string {
	if dialect == DialectPostgres {
		return q.PostgresQuery
	}
	return q.SQLiteQuery
}

var (
	QueryCreateFormsTable = DBQuery{
		ID: "FSQ-FORM-000",
		PostgresQuery: `
			CREATE TABLE IF NOT EXISTS forms (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				schema_json TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		SQLiteQuery: `
			CREATE TABLE IF NOT EXISTS forms (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				schema_json TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
	}

	QueryCreateSubmissionsTable = DBQuery{
		ID: "FSQ-SUBMISSION-000",
		PostgresQuery: `
			CREATE TABLE IF NOT EXISTS submissions (
				id TEXT PRIMARY KEY,
				form_id TEXT NOT NULL,
				data_json TEXT NOT NULL,
				submitted_at TEXT NOT NULL,
				status TEXT NOT NULL
			)`,
		SQLiteQuery: `
			CREATE TABLE IF NOT EXISTS submissions (
				id TEXT PRIMARY KEY,
				form_id TEXT NOT NULL,
				data_json TEXT NOT NULL,
				submitted_at TEXT NOT NULL,
				status TEXT NOT NULL
			)`,
	}

	QueryCreateSubmissionsIndex = DBQuery{
		ID:            "FSQ-SUBMISSION-001",
		PostgresQuery: `CREATE INDEX IF NOT EXISTS submissions_form_id ON submissions (form_id)`,
		SQLiteQuery:   `CREATE INDEX IF NOT EXISTS submissions_form_id ON submissions (form_id)`,
	}

	QueryListForms = DBQuery{
		ID: "FSQ-FORM-001",
		PostgresQuery: `
			SELECT schema_json, created_at, updated_at
			FROM forms
			ORDER BY created_at, id`,
		SQLiteQuery: `
			SELECT schema_json, created_at, updated_at
			FROM forms
			ORDER BY created_at, id`,
	}

	QueryGetForm = DBQuery{
		ID: "FSQ-FORM-002",
		PostgresQuery: `
			SELECT schema_json, created_at, updated_at
			FROM forms
			WHERE id = $1`,
		SQLiteQuery: `
			SELECT schema_json, created_at, updated_at
			FROM forms
			WHERE id = ?`,
	}

	QueryInsertForm = DBQuery{
		ID: "FSQ-FORM-003",
		PostgresQuery: `
			INSERT INTO forms (id, title, description, schema_json, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
		SQLiteQuery: `
			INSERT INTO forms (id, title, description, schema_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
	}

	QueryUpdateForm = DBQuery{
		ID: "FSQ-FORM-004",
		PostgresQuery: `
			UPDATE forms
			SET title = $1, description = $2, schema_json = $3, updated_at = $4
			WHERE id = $5`,
		SQLiteQuery: `
			UPDATE forms
			SET title = ?, description = ?, schema_json = ?, updated_at = ?
			WHERE id = ?`,
	}

	QueryDeleteForm = DBQuery{
		ID:            "FSQ-FORM-005",
		PostgresQuery: `DELETE FROM forms WHERE id = $1`,
		SQLiteQuery:   `DELETE FROM forms WHERE id = ?`,
	}

	QueryDeleteFormSubmissions = DBQuery{
		ID:            "FSQ-SUBMISSION-002",
		PostgresQuery: `DELETE FROM submissions WHERE form_id = $1`,
		SQLiteQuery:   `DELETE FROM submissions WHERE form_id = ?`,
	}

	QueryInsertSubmission = DBQuery{
		ID: "FSQ-SUBMISSION-003",
		PostgresQuery: `
			INSERT INTO submissions (id, form_id, data_json, submitted_at, status)
			VALUES ($1, $2, $3, $4, $5)`,
		SQLiteQuery: `
			INSERT INTO submissions (id, form_id, data_json, submitted_at, status)
			VALUES (?, ?, ?, ?, ?)`,
	}

	QueryListSubmissions = DBQuery{
		ID: "FSQ-SUBMISSION-004",
		PostgresQuery: `
			SELECT id, form_id, data_json, submitted_at, status
			FROM submissions
			WHERE form_id = $1
			ORDER BY submitted_at, id`,
		SQLiteQuery: `
			SELECT id, form_id, data_json, submitted_at, status
			FROM submissions
			WHERE form_id = ?
			ORDER BY submitted_at, id`,
	}
)

var migrations = []DBQuery{
	QueryCreateFormsTable,
	QueryCreateSubmissionsTable,
	QueryCreateSubmissionsIndex,
}
