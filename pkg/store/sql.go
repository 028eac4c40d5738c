package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/goliatone/go-formschema/pkg/formdef"
)

// Dialect selects the SQL flavour and the database/sql driver name.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const timeLayout = time.RFC3339Nano

// ParseDialect maps a configured driver name onto a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch name {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("store: unsupported database driver %q", name)
}

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	opts    options
	logger  *zap.Logger
}

var _ Store = (*SQLStore)(nil)

// Open connects to dsn with the driver registered for dialect.
func Open(dialect Dialect, dsn string, logger *zap.Logger, opts ...Option) (*SQLStore, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// every pooled connection to ":memory:" would be a separate database
		db.SetMaxOpenConns(1)
	}
	return NewSQLStore(db, dialect, logger, opts...), nil
}

// NewSQLStore wraps an existing handle.
func NewSQLStore(db *sql.DB, dialect Dialect, logger *zap.Logger, opts ...Option) *SQLStore {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		opts:    o,
		logger:  logger.With(zap.String("component", "FormStore"), zap.String("dialect", string(dialect))),
	}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the forms and submissions tables when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, q := range migrations {
		if _, err := s.db.ExecContext(ctx, q.For(s.dialect)); err != nil {
			return fmt.Errorf("store: migrate %s: %w", q.ID, err)
		}
	}
	s.logger.Debug("schema migrated")
	return nil
}

func (s *SQLStore) ListForms(ctx context.Context) ([]formdef.FormDefinition, error) {
	rows, err := s.db.QueryContext(ctx, QueryListForms.For(s.dialect))
	if err != nil {
		return nil, fmt.Errorf("store: list forms: %w", err)
	}
	defer s.closeRows(rows)

	forms := []formdef.FormDefinition{}
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list forms: %w", err)
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list forms: %w", err)
	}
	return forms, nil
}

func (s *SQLStore) GetForm(ctx context.Context, id string) (formdef.FormDefinition, error) {
	row := s.db.QueryRowContext(ctx, QueryGetForm.For(s.dialect), id)
	form, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return formdef.FormDefinition{}, fmt.Errorf("form %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return formdef.FormDefinition{}, fmt.Errorf("store: get form %q: %w", id, err)
	}
	return form, nil
}

func (s *SQLStore) CreateForm(ctx context.Context, form formdef.FormDefinition) (formdef.FormDefinition, error) {
	if err := checkForm(form); err != nil {
		return formdef.FormDefinition{}, err
	}
	now := s.opts.timestamp()
	form = stamped(form, now, now)

	raw, err := json.Marshal(form)
	if err != nil {
		return formdef.FormDefinition{}, fmt.Errorf("store: encode form: %w", err)
	}
	_, err = s.db.ExecContext(ctx, QueryInsertForm.For(s.dialect),
		form.ID, form.Title, form.Description, string(raw),
		now.Format(timeLayout), now.Format(timeLayout))
	if isUniqueViolation(err) {
		return formdef.FormDefinition{}, fmt.Errorf("form %q: %w", form.ID, ErrConflict)
	}
	if err != nil {
		return formdef.FormDefinition{}, fmt.Errorf("store: create form %q: %w", form.ID, err)
	}
	s.logger.Info("form created", zap.String("form_id", form.ID))
	return form, nil
}

func (s *SQLStore) UpdateForm(ctx context.Context, form formdef.FormDefinition) (formdef.FormDefinition, error) {
	if err := checkForm(form); err != nil {
		return formdef.FormDefinition{}, err
	}
	current, err := s.GetForm(ctx, form.ID)
	if err != nil {
		return formdef.FormDefinition{}, err
	}
	now := s.opts.timestamp()
	form = stamped(form, createdAt(current), now)

	raw, err := json.Marshal(form)
	if err != nil {
		return formdef.FormDefinition{}, fmt.Errorf("store: encode form: %w", err)
	}
	res, err := s.db.ExecContext(ctx, QueryUpdateForm.For(s.dialect),
		form.Title, form.Description, string(raw), now.Format(timeLayout), form.ID)
	if err != nil {
		return formdef.FormDefinition{}, fmt.Errorf("store: update form %q: %w", form.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return formdef.FormDefinition{}, fmt.Errorf("form %q: %w", form.ID, ErrNotFound)
	}
	s.logger.Info("form updated", zap.String("form_id", form.ID))
	return form, nil
}

func (s *SQLStore) DeleteForm(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete form %q: %w", id, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Error("rollback failed", zap.String("form_id", id), zap.Error(err))
		}
	}()

	res, err := tx.ExecContext(ctx, QueryDeleteForm.For(s.dialect), id)
	if err != nil {
		return fmt.Errorf("store: delete form %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete form %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("form %q: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, QueryDeleteFormSubmissions.For(s.dialect), id); err != nil {
		return fmt.Errorf("store: delete submissions of %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: delete form %q: %w", id, err)
	}
	s.logger.Info("form deleted", zap.String("form_id", id))
	return nil
}

func (s *SQLStore) SaveSubmission(ctx context.Context, sub Submission) (Submission, error) {
	sub, err := prepareSubmission(s.opts, sub)
	if err != nil {
		return Submission{}, err
	}
	if _, err := s.GetForm(ctx, sub.FormID); err != nil {
		return Submission{}, err
	}
	raw, err := json.Marshal(sub.Data)
	if err != nil {
		return Submission{}, fmt.Errorf("store: encode submission: %w", err)
	}
	_, err = s.db.ExecContext(ctx, QueryInsertSubmission.For(s.dialect),
		sub.ID, sub.FormID, string(raw), sub.SubmittedAt.UTC().Format(timeLayout), sub.Status)
	if isUniqueViolation(err) {
		return Submission{}, fmt.Errorf("submission %q: %w", sub.ID, ErrConflict)
	}
	if err != nil {
		return Submission{}, fmt.Errorf("store: save submission: %w", err)
	}
	s.logger.Debug("submission saved", zap.String("form_id", sub.FormID), zap.String("submission_id", sub.ID))
	return sub, nil
}

func (s *SQLStore) ListSubmissions(ctx context.Context, formID string) ([]Submission, error) {
	if _, err := s.GetForm(ctx, formID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, QueryListSubmissions.For(s.dialect), formID)
	if err != nil {
		return nil, fmt.Errorf("store: list submissions: %w", err)
	}
	defer s.closeRows(rows)

	subs := []Submission{}
	for rows.Next() {
		var (
			sub                 Submission
			data, submittedText string
		)
		if err := rows.Scan(&sub.ID, &sub.FormID, &data, &submittedText, &sub.Status); err != nil {
			return nil, fmt.Errorf("store: list submissions: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &sub.Data); err != nil {
			return nil, fmt.Errorf("store: decode submission %s: %w", sub.ID, err)
		}
		if sub.SubmittedAt, err = time.Parse(timeLayout, submittedText); err != nil {
			return nil, fmt.Errorf("store: submission %s timestamp: %w", sub.ID, err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list submissions: %w", err)
	}
	return subs, nil
}

func (s *SQLStore) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		s.logger.Error("failed to close rows", zap.Error(err))
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanForm(row scanner) (formdef.FormDefinition, error) {
	var raw, createdText, updatedText string
	if err := row.Scan(&raw, &createdText, &updatedText); err != nil {
		return formdef.FormDefinition{}, err
	}
	form, err := formdef.Decode([]byte(raw), formdef.FormatJSON)
	if err != nil {
		return formdef.FormDefinition{}, err
	}
	created, err := time.Parse(timeLayout, createdText)
	if err != nil {
		return formdef.FormDefinition{}, fmt.Errorf("created_at: %w", err)
	}
	updated, err := time.Parse(timeLayout, updatedText)
	if err != nil {
		return formdef.FormDefinition{}, fmt.Errorf("updated_at: %w", err)
	}
	return stamped(form, created, updated), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
