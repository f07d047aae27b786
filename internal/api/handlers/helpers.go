package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"sidekick-route-service/internal/api/dto"
	"sidekick-route-service/internal/domain"
)

// Upper bound on request bodies.
const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object with no unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}

func toRunResponse(rec domain.RunRecord) dto.RunResponse {
	return dto.RunResponse{
		ID:                rec.ID,
		ProblemName:       rec.ProblemName,
		CreatedAt:         rec.CreatedAt,
		Status:            string(rec.Status),
		Makespan:          rec.Makespan,
		NumCustomers:      rec.NumCustomers,
		NumDrones:         rec.NumDrones,
		NumTruckCustomers: rec.NumTruckCustomers,
		NumDroneCustomers: rec.NumDroneCustomers,
		TruckWaiting:      rec.TruckWaiting,
		DroneWaiting:      rec.DroneWaiting,
		ElapsedSeconds:    rec.ElapsedSeconds,
	}
}
