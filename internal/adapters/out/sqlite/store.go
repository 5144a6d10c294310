// Package sqlite implements the repository-data and credential
// collaborators on an embedded SQLite database.
package sqlite

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/berthd/berth/internal/domain"
)

// bcryptCost is the hashing cost for stored passwords.
const bcryptCost = 12

// Store implements out.RepositoryStore and out.Authenticator on a
// SQLite database.
type Store struct {
	db  *sql.DB
	log zerowrap.Logger
}

// Open opens (creating if necessary) the database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral database.
func Open(path string, log zerowrap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY under concurrent
	// writers; the driver serializes statements for us.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Debug().Str(zerowrap.FieldComponent, "sqlite").Str("path", path).Msg("database opened")

	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const repositoryColumns = `r.id, r.owner_id, COALESCE(u.username, ''), r.name, r.visibility, r.is_official, r.pull_count`

// FindUserRepository looks up a non-official repository addressed as
// owner/name. Returns (nil, nil) when absent.
func (s *Store) FindUserRepository(ctx context.Context, ownerUsername, name string) (*domain.Repository, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+repositoryColumns+`
		FROM repositories r
		JOIN users u ON u.id = r.owner_id
		WHERE u.username = ? AND r.name = ? AND r.is_official = 0`,
		ownerUsername, name)
	return scanRepository(row)
}

// FindOfficialRepository looks up an official repository by its bare
// name. Returns (nil, nil) when absent.
func (s *Store) FindOfficialRepository(ctx context.Context, name string) (*domain.Repository, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+repositoryColumns+`
		FROM repositories r
		LEFT JOIN users u ON u.id = r.owner_id
		WHERE r.name = ? AND r.is_official = 1`,
		name)
	return scanRepository(row)
}

func scanRepository(row *sql.Row) (*domain.Repository, error) {
	var (
		repo       domain.Repository
		ownerID    sql.NullString
		visibility string
	)
	err := row.Scan(&repo.ID, &ownerID, &repo.OwnerUsername, &repo.Name, &visibility, &repo.IsOfficial, &repo.PullCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan repository: %w", err)
	}
	repo.OwnerID = ownerID.String
	repo.Visibility = domain.Visibility(visibility)
	return &repo, nil
}

// UpsertTag creates or overwrites the tag keyed by (repositoryID,
// name). The conflict clause keeps replayed pushes down to a single
// row with the most recent digest and size.
func (s *Store) UpsertTag(ctx context.Context, repositoryID, name, digest string, size int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, repository_id, name, digest, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository_id, name)
		DO UPDATE SET digest = excluded.digest, size = excluded.size`,
		uuid.New().String(), repositoryID, name, digest, size, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert tag %s: %w", name, err)
	}
	return nil
}

// IncrementPullCount adds one to the repository's pull counter inside
// a single UPDATE, so concurrent deliveries never lose an increment.
func (s *Store) IncrementPullCount(ctx context.Context, repositoryID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE repositories
		SET pull_count = pull_count + 1, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), repositoryID)
	if err != nil {
		return fmt.Errorf("failed to increment pull count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRepositoryNotFound
	}
	return nil
}

// Authenticate validates a username/password pair. Returns (nil, nil)
// when the pair matches no account.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	var (
		user domain.User
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash FROM users WHERE username = ?",
		username).Scan(&user.ID, &user.Username, &hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// Constant-time username comparison; bcrypt comparison is already
	// constant-time.
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(user.Username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	if !usernameMatch || !passwordMatch {
		return nil, nil
	}

	return &user, nil
}

// CreateUser creates an account with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{ID: uuid.New().String(), Username: username}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Username, string(hash), time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info().Str(zerowrap.FieldComponent, "sqlite").Str("username", username).Msg("user created")
	return user, nil
}

// CreateRepository creates a repository record. ownerUsername may be
// empty only for official repositories.
func (s *Store) CreateRepository(ctx context.Context, ownerUsername, name string, visibility domain.Visibility, official bool) (*domain.Repository, error) {
	repo := &domain.Repository{
		ID:            uuid.New().String(),
		OwnerUsername: ownerUsername,
		Name:          name,
		Visibility:    visibility,
		IsOfficial:    official,
	}

	var ownerID any
	if ownerUsername != "" {
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM users WHERE username = ?", ownerUsername).Scan(&repo.OwnerID)
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up owner: %w", err)
		}
		ownerID = repo.OwnerID
	} else if !official {
		return nil, fmt.Errorf("non-official repository %q needs an owner", name)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories (id, owner_id, name, visibility, is_official, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		repo.ID, ownerID, repo.Name, string(repo.Visibility), repo.IsOfficial, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrRepositoryExists
		}
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	s.log.Info().
		Str(zerowrap.FieldComponent, "sqlite").
		Str("repository", repo.FullName()).
		Bool("official", official).
		Msg("repository created")
	return repo, nil
}

// TagCount returns the number of tags recorded for a repository.
func (s *Store) TagCount(ctx context.Context, repositoryID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tags WHERE repository_id = ?", repositoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tags: %w", err)
	}
	return n, nil
}

// FindTag returns a tag by repository and name, or (nil, nil).
func (s *Store) FindTag(ctx context.Context, repositoryID, name string) (*domain.Tag, error) {
	var tag domain.Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, repository_id, name, digest, size, created_at
		FROM tags WHERE repository_id = ? AND name = ?`,
		repositoryID, name).Scan(&tag.ID, &tag.RepositoryID, &tag.Name, &tag.Digest, &tag.Size, &tag.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tag: %w", err)
	}
	return &tag, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
