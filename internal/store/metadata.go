package store

import (
	"database/sql"
	"strconv"

	"github.com/kpssprep/marathon/internal/model"
)

// SetMetadata upserts a key-value pair in the service_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO service_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM service_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetServiceInfo records the generator setup of the running server.
func (s *Store) SetServiceInfo(info model.ServiceInfo) error {
	pairs := []struct{ k, v string }{
		{"generator", info.Generator},
		{"batch_size", strconv.Itoa(info.BatchSize)},
		{"language", info.Language},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetServiceInfo reads the last recorded generator setup.
func (s *Store) GetServiceInfo() (model.ServiceInfo, error) {
	var info model.ServiceInfo
	var err error

	if info.Generator, err = s.GetMetadata("generator"); err != nil {
		return info, err
	}
	if info.Language, err = s.GetMetadata("language"); err != nil {
		return info, err
	}
	bs, err := s.GetMetadata("batch_size")
	if err != nil {
		return info, err
	}
	if bs != "" {
		info.BatchSize, err = strconv.Atoi(bs)
		if err != nil {
			return info, err
		}
	}
	return info, nil
}
