// Package csvio reads problem tables and writes solution reports in the
// comma-separated layout used by the planner's problem directories.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"

	"sidekick-route-service/internal/domain"
)

// Comment lines start with this rune; problem files carry their column
// legend this way instead of a header row.
const commentChar = '%'

var (
	vehicleHeader  = []string{"id", "type", "takeoffSpeed", "cruiseSpeed", "landingSpeed", "yawRateDeg", "cruiseAlt", "capacityLbs", "launchTime", "recoveryTime", "serviceTime", "batteryPower", "flightRange"}
	locationHeader = []string{"id", "type", "lat", "lon", "alt", "parcelWtLbs", "street", "city", "state", "zip"}
	matrixHeader   = []string{"from", "to", "time", "dist"}
)

// recordReader trims fields, drops trailing empty ones and pads short
// records to width so optional columns decode as empty strings.
type recordReader struct {
	r     *csv.Reader
	width int
}

func newRecordReader(r io.Reader, width int) *recordReader {
	cr := csv.NewReader(r)
	cr.Comment = commentChar
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &recordReader{r: cr, width: width}
}

func (rr *recordReader) Read() ([]string, error) {
	for {
		rec, err := rr.r.Read()
		if err != nil {
			return nil, err
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		for len(rec) > 0 && rec[len(rec)-1] == "" {
			rec = rec[:len(rec)-1]
		}
		if len(rec) == 0 {
			continue
		}
		if len(rec) > rr.width {
			return nil, fmt.Errorf("record has %d fields, at most %d expected", len(rec), rr.width)
		}
		for len(rec) < rr.width {
			rec = append(rec, "")
		}
		return rec, nil
	}
}

func decodeAll[T any](r io.Reader, header []string, what string) ([]T, error) {
	dec, err := csvutil.NewDecoder(newRecordReader(r, len(header)), header...)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	var rows []T
	if err := dec.Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	return rows, nil
}

type vehicleRow struct {
	ID           int     `csv:"id"`
	Type         int     `csv:"type"`
	TakeoffSpeed float64 `csv:"takeoffSpeed"`
	CruiseSpeed  float64 `csv:"cruiseSpeed"`
	LandingSpeed float64 `csv:"landingSpeed"`
	YawRateDeg   float64 `csv:"yawRateDeg"`
	CruiseAlt    float64 `csv:"cruiseAlt"`
	CapacityLbs  float64 `csv:"capacityLbs"`
	LaunchTime   float64 `csv:"launchTime"`
	RecoveryTime float64 `csv:"recoveryTime"`
	ServiceTime  float64 `csv:"serviceTime"`
	BatteryPower float64 `csv:"batteryPower"`
	FlightRange  string  `csv:"flightRange"`
}

// ReadVehicles parses a vehicle table in file order.
func ReadVehicles(r io.Reader) ([]domain.Vehicle, error) {
	rows, err := decodeAll[vehicleRow](r, vehicleHeader, "vehicles")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Vehicle, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Vehicle{
			ID:           row.ID,
			Kind:         domain.VehicleKind(row.Type),
			TakeoffSpeed: row.TakeoffSpeed,
			CruiseSpeed:  row.CruiseSpeed,
			LandingSpeed: row.LandingSpeed,
			YawRateDeg:   row.YawRateDeg,
			CruiseAlt:    row.CruiseAlt,
			CapacityLbs:  row.CapacityLbs,
			LaunchTime:   row.LaunchTime,
			RecoveryTime: row.RecoveryTime,
			ServiceTime:  row.ServiceTime,
			BatteryPower: row.BatteryPower,
			FlightRange:  row.FlightRange,
		})
	}
	return out, nil
}

type locationRow struct {
	ID          int     `csv:"id"`
	Type        int     `csv:"type"`
	Lat         float64 `csv:"lat"`
	Lon         float64 `csv:"lon"`
	Alt         float64 `csv:"alt"`
	ParcelWtLbs float64 `csv:"parcelWtLbs"`
	Street      string  `csv:"street"`
	City        string  `csv:"city"`
	State       string  `csv:"state"`
	Zip         string  `csv:"zip"`
}

func (l locationRow) address() string {
	if l.Street == "" && l.City == "" && l.State == "" && l.Zip == "" {
		return ""
	}
	return strings.Join([]string{l.Street, l.City, l.State, l.Zip}, ", ")
}

// ReadLocations parses a location table into nodes ordered by id. Service
// times are left zero; see Fleet.ApplyServiceTimes.
func ReadLocations(r io.Reader) ([]domain.Node, error) {
	rows, err := decodeAll[locationRow](r, locationHeader, "locations")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Node, 0, len(rows))
	for _, row := range rows {
		kind := domain.NodeKind(row.Type)
		if kind != domain.NodeDepot && kind != domain.NodeCustomer {
			return nil, fmt.Errorf("read locations: node %d has unknown type %d", row.ID, row.Type)
		}
		out = append(out, domain.Node{
			ID:              row.ID,
			Kind:            kind,
			Position:        domain.Coordinates{Lat: row.Lat, Lon: row.Lon, AltMeters: row.Alt},
			ParcelWeightLbs: row.ParcelWtLbs,
			Address:         row.address(),
		})
	}
	slices.SortFunc(out, func(a, b domain.Node) int { return a.ID - b.ID })
	return out, nil
}

type legRow struct {
	From int     `csv:"from"`
	To   int     `csv:"to"`
	Time float64 `csv:"time"`
	Dist float64 `csv:"dist"`
}

// ReadTruckMatrix parses from, to, seconds, meters rows.
func ReadTruckMatrix(r io.Reader) (domain.TruckMatrix, error) {
	rows, err := decodeAll[legRow](r, matrixHeader, "truck matrix")
	if err != nil {
		return nil, err
	}
	m := make(domain.TruckMatrix, len(rows))
	for _, row := range rows {
		m.Set(row.From, row.To, domain.NewTruckLeg(row.Time, row.Dist))
	}
	return m, nil
}
