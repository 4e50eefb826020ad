package store

import (
	"database/sql"
	"errors"

	"github.com/circuito/veinscope/internal/v4l2"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// CameraSettingsRepository persists camera control values per device
// group, so a fixture regains its tuning across power cycles.
type CameraSettingsRepository struct {
	db *sql.DB
}

// CameraSettings returns the camera settings repository for this store.
func (s *Store) CameraSettings() *CameraSettingsRepository {
	return &CameraSettingsRepository{db: s.db}
}

// SaveGroup writes all control values for one device group in a single
// transaction, replacing any previously stored values.
func (r *CameraSettingsRepository) SaveGroup(groupKey string, values v4l2.ControlValues) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for name, value := range values {
		_, err := tx.Exec(
			`INSERT INTO camera_settings (group_key, name, value) VALUES (?, ?, ?)
			 ON CONFLICT(group_key, name) DO UPDATE SET value = excluded.value`,
			groupKey, name, value,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadGroup reads the stored control values for one device group. A group
// with nothing stored yields an empty map, not an error.
func (r *CameraSettingsRepository) LoadGroup(groupKey string) (v4l2.ControlValues, error) {
	rows, err := r.db.Query(
		`SELECT name, value FROM camera_settings WHERE group_key = ?`,
		groupKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := v4l2.ControlValues{}
	for rows.Next() {
		var name string
		var value int32
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		values[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return values, nil
}

// SettingsRepository stores application settings as key-value pairs.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get retrieves the value for a key. Returns ErrNotFound when the key has
// never been set.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set writes the value for a key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
