package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const TABLE_NAME = "wattbox_energy_state"

// EnergyState is one persisted integrator snapshot. Point identifies the
// metering point within the device ("device" or "outlet-<n>"). LastPower
// and LastSample are NULL until a metering point has seen its first
// sample.
type EnergyState struct {
	Host       string     `db:"host" json:"host"`
	Point      string     `db:"point" json:"point"`
	EnergyKwh  float64    `db:"energy_kwh" json:"energy_kwh"`
	LastPower  *float64   `db:"last_power" json:"last_power,omitempty"`
	LastSample *time.Time `db:"last_sample" json:"last_sample,omitempty"`
}

func CreateEnergyStateIfNotExists(path string) (*sqlx.DB, error) {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		host 		TEXT NOT NULL,
		point 		TEXT NOT NULL,
		energy_kwh 	REAL NOT NULL,
		last_power 	REAL,
		last_sample TIMESTAMP,
		PRIMARY KEY (host, point)
	);
	`, TABLE_NAME)
	if err := os.MkdirAll(filepath.Dir(path), 0766); err != nil {
		return nil, fmt.Errorf("failed to make database directory: %v", err)
	}
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}
	return db, nil
}

// SaveEnergyStates upserts integrator snapshots so a restarted monitor
// can pick up its accumulated totals instead of starting from zero.
func SaveEnergyStates(path string, states ...EnergyState) error {
	if len(states) == 0 {
		return nil
	}

	db, err := CreateEnergyStateIfNotExists(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx := db.MustBegin()
	for _, state := range states {
		sql := fmt.Sprintf(`INSERT OR REPLACE INTO %s (host, point, energy_kwh, last_power, last_sample)
		VALUES (:host, :point, :energy_kwh, :last_power, :last_sample);`, TABLE_NAME)
		if _, err := tx.NamedExec(sql, &state); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute transaction: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// GetEnergyStates loads the snapshots stored for a host. An empty host
// returns every stored snapshot.
func GetEnergyStates(path string, host string) ([]EnergyState, error) {
	db, err := CreateEnergyStateIfNotExists(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	states := []EnergyState{}
	if host == "" {
		err = db.Select(&states, fmt.Sprintf("SELECT * FROM %s ORDER BY host, point;", TABLE_NAME))
	} else {
		err = db.Select(&states, fmt.Sprintf("SELECT * FROM %s WHERE host=$1 ORDER BY point;", TABLE_NAME), host)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query energy state: %v", err)
	}
	return states, nil
}

// DeleteEnergyStates removes the snapshots stored for a host, resetting
// its accumulated totals.
func DeleteEnergyStates(path string, host string) error {
	db, err := CreateEnergyStateIfNotExists(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s WHERE host=$1;", TABLE_NAME), host); err != nil {
		return fmt.Errorf("failed to delete energy state: %v", err)
	}
	return nil
}
