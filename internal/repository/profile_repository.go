package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/gaze-events-backend-go/internal/database"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
)

// ProfileRepository handles database operations for threshold profiles
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, name, description, skill_name, params_json, is_default, created_by, created_at, updated_at`

func scanProfile(row interface{ Scan(...interface{}) error }) (*models.ThresholdProfile, error) {
	p := &models.ThresholdProfile{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SkillName, &p.ParamsJSON,
		&p.IsDefault, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create stores a profile. A default profile clears the default flag of the
// other profiles of the same skill.
func (r *ProfileRepository) Create(p *models.ThresholdProfile) error {
	if p.ParamsJSON == "" {
		p.ParamsJSON = "{}"
	}
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		if p.IsDefault {
			if _, err := tx.Exec(`UPDATE threshold_profiles SET is_default = 0 WHERE skill_name = ?`, p.SkillName); err != nil {
				return fmt.Errorf("failed to clear default profile: %w", err)
			}
		}
		result, err := tx.Exec(`
			INSERT INTO threshold_profiles (name, description, skill_name, params_json, is_default, created_by)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.Name, p.Description, p.SkillName, p.ParamsJSON, p.IsDefault, p.CreatedBy)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		p.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(id int64) (*models.ThresholdProfile, error) {
	p, err := scanProfile(r.db.QueryRow(`SELECT `+profileColumns+` FROM threshold_profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetDefault returns the default profile of a skill
func (r *ProfileRepository) GetDefault(skillName string) (*models.ThresholdProfile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM threshold_profiles WHERE skill_name = ? AND is_default = 1`, skillName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("default profile of %s: %w", skillName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default profile: %w", err)
	}
	return p, nil
}

// List returns the profiles, optionally of one skill
func (r *ProfileRepository) List(skillName string) ([]*models.ThresholdProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM threshold_profiles`
	var args []interface{}
	if skillName != "" {
		query += ` WHERE skill_name = ?`
		args = append(args, skillName)
	}
	query += ` ORDER BY skill_name, name`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.ThresholdProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
