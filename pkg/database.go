package decoder

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

type CalibrationEntry struct {
	ChannelID    int    `db:"ChannelID"`
	Coefficients string `db:"Coefficients"`
}

type TimeOffsetEntry struct {
	ChannelID int    `db:"ChannelID"`
	Offset    uint64 `db:"Offset"`
}

const calibrationsQuery = "SELECT ChannelID, Coefficients FROM Calibrations WHERE MinRun <= ? and MaxRun >= ? ORDER BY ChannelID"
const timeOffsetsQuery = "SELECT ChannelID, Offset FROM TimeOffsets WHERE MinRun <= ? and MaxRun >= ? ORDER BY ChannelID"

// LoadCalibrations reads the energy calibrations and time offsets valid for
// runNumber.
func LoadCalibrations(db *sqlx.DB, runNumber int) (map[uint16]Calibration, map[uint16]uint64, error) {
	calibrations, err := getCalibrationsFromDB(db, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting calibrations from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, nil, errMessage
	}
	offsets, err := getTimeOffsetsFromDB(db, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting time offsets from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, nil, errMessage
	}
	return calibrations, offsets, nil
}

func getCalibrationsFromDB(db *sqlx.DB, runNumber int) (map[uint16]Calibration, error) {
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading calibrations for run %d from database", runNumber)
		logger.Info(message, "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", calibrationsQuery)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(calibrationsQuery, runNumber, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	calibrations := make(map[uint16]Calibration)
	for rows.Next() {
		result := CalibrationEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		coefficients, err := parseCoefficients(result.Coefficients)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", result.ChannelID, err)
		}
		calibrations[uint16(result.ChannelID)] = Calibration{Coefficients: coefficients}
	}
	return calibrations, rows.Err()
}

func getTimeOffsetsFromDB(db *sqlx.DB, runNumber int) (map[uint16]uint64, error) {
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading time offsets for run %d from database", runNumber)
		logger.Info(message, "database")
	}

	entries := []TimeOffsetEntry{}
	if err := db.Select(&entries, timeOffsetsQuery, runNumber, runNumber); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}

	offsets := make(map[uint16]uint64, len(entries))
	for _, entry := range entries {
		offsets[uint16(entry.ChannelID)] = entry.Offset
	}
	return offsets, nil
}

// parseCoefficients parses a comma separated list of polynomial coefficients,
// constant term first.
func parseCoefficients(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	coefficients := make([]float64, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coefficient %q: %w", field, err)
		}
		coefficients = append(coefficients, value)
	}
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("no coefficients in %q", s)
	}
	return coefficients, nil
}
