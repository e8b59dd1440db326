package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/camglobe/internal/database"
	"github.com/jengzang/camglobe/internal/models"
)

const cameraColumns = `id, name, latitude, longitude, country, city, source, stream_url, created_at, updated_at`

// CameraRepository handles database operations for cameras
type CameraRepository struct {
	db *sql.DB
}

// NewCameraRepository creates a new camera repository
func NewCameraRepository(db *sql.DB) *CameraRepository {
	return &CameraRepository{db: db}
}

// where builds the WHERE clause for a filter
func (r *CameraRepository) where(filter models.CameraFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Country != "" {
		conditions = append(conditions, "country = ?")
		args = append(args, filter.Country)
	}
	if filter.City != "" {
		conditions = append(conditions, "city = ?")
		args = append(args, filter.City)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Query != "" {
		conditions = append(conditions, "name LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filter.Query)+"%")
	}
	if filter.MinLat != nil {
		conditions = append(conditions, "latitude >= ?")
		args = append(args, *filter.MinLat)
	}
	if filter.MaxLat != nil {
		conditions = append(conditions, "latitude <= ?")
		args = append(args, *filter.MaxLat)
	}

	switch {
	case filter.MinLon != nil && filter.MaxLon != nil && *filter.MinLon > *filter.MaxLon:
		// 跨越180度经线
		conditions = append(conditions, "(longitude >= ? OR longitude <= ?)")
		args = append(args, *filter.MinLon, *filter.MaxLon)
	default:
		if filter.MinLon != nil {
			conditions = append(conditions, "longitude >= ?")
			args = append(args, *filter.MinLon)
		}
		if filter.MaxLon != nil {
			conditions = append(conditions, "longitude <= ?")
			args = append(args, *filter.MaxLon)
		}
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List retrieves cameras with filtering and pagination
func (r *CameraRepository) List(filter models.CameraFilter) ([]models.Camera, int64, error) {
	where, args := r.where(filter)

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM cameras"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cameras: %w", err)
	}

	// Add pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}
	offset := (filter.Page - 1) * filter.PageSize

	query := "SELECT " + cameraColumns + " FROM cameras" + where + " ORDER BY id LIMIT ? OFFSET ?"
	cameras, err := r.query(query, append(args, filter.PageSize, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return cameras, total, nil
}

// All retrieves every camera matching the filter, ignoring pagination
func (r *CameraRepository) All(filter models.CameraFilter) ([]models.Camera, error) {
	where, args := r.where(filter)
	return r.query("SELECT "+cameraColumns+" FROM cameras"+where+" ORDER BY id", args...)
}

func (r *CameraRepository) query(query string, args ...interface{}) ([]models.Camera, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}
	defer rows.Close()

	var cameras []models.Camera
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, err
		}
		cameras = append(cameras, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cameras: %w", err)
	}
	return cameras, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCamera(s scanner) (models.Camera, error) {
	var c models.Camera
	err := s.Scan(
		&c.ID, &c.Name, &c.Latitude, &c.Longitude, &c.Country, &c.City,
		&c.Source, &c.StreamURL, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return c, fmt.Errorf("failed to scan camera: %w", err)
	}
	return c, nil
}

// GetByID retrieves a single camera by ID. It returns nil when there is no
// such camera.
func (r *CameraRepository) GetByID(id string) (*models.Camera, error) {
	row := r.db.QueryRow("SELECT "+cameraColumns+" FROM cameras WHERE id = ?", id)
	c, err := scanCamera(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Count returns the number of cameras
func (r *CameraRepository) Count() (int64, error) {
	var n int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM cameras").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cameras: %w", err)
	}
	return n, nil
}

// UpsertBatch inserts or updates cameras in one transaction. Existing rows
// keep their created_at.
func (r *CameraRepository) UpsertBatch(cameras []models.Camera) (int, error) {
	if len(cameras) == 0 {
		return 0, nil
	}
	now := time.Now().Unix()

	err := database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO cameras (` + cameraColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				latitude = excluded.latitude,
				longitude = excluded.longitude,
				country = excluded.country,
				city = excluded.city,
				source = excluded.source,
				stream_url = excluded.stream_url,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, c := range cameras {
			created := c.CreatedAt
			if created == 0 {
				created = now
			}
			_, err := stmt.Exec(
				c.ID, c.Name, c.Latitude, c.Longitude, c.Country, c.City,
				c.Source, c.StreamURL, created, now,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert camera %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(cameras), nil
}

// Delete removes a camera. It reports whether a row was deleted.
func (r *CameraRepository) Delete(id string) (bool, error) {
	res, err := r.db.Exec("DELETE FROM cameras WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete camera: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete camera: %w", err)
	}
	return n > 0, nil
}
