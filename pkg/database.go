package advlab

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// OpenDatabase connects with the configured driver. For sqlite DBName is the
// database file.
func OpenDatabase(config Configuration) (*sqlx.DB, error) {
	switch config.DBDriver {
	case "mysql":
		return ConnectToDatabase(config.User, config.Passwd, config.Host, config.DBName)
	case "sqlite":
		return sqlx.Connect("sqlite", config.DBName)
	default:
		return nil, fmt.Errorf("unknown database driver %q", config.DBDriver)
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS EnergyCalibration (
		Channel INTEGER NOT NULL,
		AdcChannel DOUBLE NOT NULL,
		EnergyMeV DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS VertexResults (
		RunID VARCHAR(36) NOT NULL,
		Label VARCHAR(255) NOT NULL,
		Rnk INTEGER NOT NULL,
		Combination INTEGER NOT NULL,
		X DOUBLE NOT NULL,
		Y DOUBLE NOT NULL,
		Chi2 DOUBLE NOT NULL
	)`,
}

func CreateTables(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating table: %w", err)
		}
	}
	return nil
}

func LoadCalibrationFromDB(db *sqlx.DB) ([]CalibrationPoint, error) {
	query := "SELECT Channel, AdcChannel, EnergyMeV FROM EnergyCalibration ORDER BY Channel"
	if configuration.Verbosity > 0 {
		logger.Info("Reading energy calibration from database", "database")
	}
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}

	rows, err := db.Queryx(query)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	points := make([]CalibrationPoint, 0)
	for rows.Next() {
		result := CalibrationPoint{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		points = append(points, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading DB rows: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no energy calibration points in database")
	}
	return points, nil
}

func StoreCalibration(db *sqlx.DB, points []CalibrationPoint) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	for _, p := range points {
		_, err := tx.NamedExec(
			"INSERT INTO EnergyCalibration (Channel, AdcChannel, EnergyMeV) VALUES (:Channel, :AdcChannel, :EnergyMeV)", p)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error inserting calibration point: %w", err)
		}
	}
	return tx.Commit()
}

type VertexRecord struct {
	RunID       string  `db:"RunID"`
	Label       string  `db:"Label"`
	Rank        int     `db:"Rnk"`
	Combination int     `db:"Combination"`
	X           float64 `db:"X"`
	Y           float64 `db:"Y"`
	Chi2        float64 `db:"Chi2"`
}

// StoreVertices saves the ranked vertices of one reconstruction under a new
// run identifier.
func StoreVertices(db *sqlx.DB, label string, selection Selection) (uuid.UUID, error) {
	runID := uuid.New()
	tx, err := db.Beginx()
	if err != nil {
		return runID, err
	}
	for rank, v := range selection.Ranked {
		record := VertexRecord{
			RunID:       runID.String(),
			Label:       label,
			Rank:        rank,
			Combination: v.Combination,
			X:           v.X,
			Y:           v.Y,
			Chi2:        v.Chi2,
		}
		_, err := tx.NamedExec(`INSERT INTO VertexResults (RunID, Label, Rnk, Combination, X, Y, Chi2)
			VALUES (:RunID, :Label, :Rnk, :Combination, :X, :Y, :Chi2)`, record)
		if err != nil {
			tx.Rollback()
			return runID, fmt.Errorf("error inserting vertex: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return runID, err
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Stored %d vertices with run id %s", len(selection.Ranked), runID)
		logger.Info(message, "database")
	}
	return runID, nil
}

func LoadVertices(db *sqlx.DB, runID uuid.UUID) ([]VertexRecord, error) {
	records := make([]VertexRecord, 0)
	query := db.Rebind("SELECT RunID, Label, Rnk, Combination, X, Y, Chi2 FROM VertexResults WHERE RunID = ? ORDER BY Rnk")
	if err := db.Select(&records, query, runID.String()); err != nil {
		return nil, fmt.Errorf("error querying vertices: %w", err)
	}
	return records, nil
}
