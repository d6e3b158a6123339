package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/theoremus-urban-solutions/ridenav/alert"
	"github.com/theoremus-urban-solutions/ridenav/geo"
	"github.com/theoremus-urban-solutions/ridenav/hazard"
	"github.com/theoremus-urban-solutions/ridenav/navigation"
	"github.com/theoremus-urban-solutions/ridenav/position"
	"github.com/theoremus-urban-solutions/ridenav/route"
)

const maxBodyBytes = 4 << 20

var (
	errBadRequest     = errors.New("bad request")
	errUpstream       = errors.New("upstream failure")
	errNoPlanner      = errors.New("route planning is not configured")
	errPushDisabled   = errors.New("fixes are not accepted over HTTP")
	errMissingRouting = errors.New("either route or origin and destination are required")
)

// routeRequest carries either a route document or the endpoints to plan
// between.
type routeRequest struct {
	Route       *route.Document `json:"route"`
	Origin      *geo.Coordinate `json:"origin"`
	Destination *geo.Coordinate `json:"destination"`
	Profile     string          `json:"profile" validate:"omitempty,oneof=safest fastest balanced scenic"`
	VehicleType string          `json:"vehicleType" validate:"omitempty,oneof=scooter bike ebike"`
	AvoidHills  bool            `json:"avoidHills"`
}

type startRequest struct {
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
	routeRequest
}

type fixRequest struct {
	Latitude  float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64    `json:"longitude" validate:"gte=-180,lte=180"`
	Accuracy  float64    `json:"accuracy" validate:"gte=0"`
	Heading   *float64   `json:"heading" validate:"omitempty,gte=0,lt=360"`
	Speed     *float64   `json:"speed" validate:"omitempty,gte=0"`
	Timestamp *time.Time `json:"timestamp"`
	Error     string     `json:"error" validate:"omitempty,oneof=permission_denied unavailable timeout"`
}

type healthResponse struct {
	Status        string `json:"status"`
	SessionActive bool   `json:"sessionActive"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		SessionActive: s.nav.Snapshot().Active,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.nav.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	rt, err := s.resolveRoute(r, req.routeRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := s.nav.Start(req.SessionID, rt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleReroute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if !s.nav.Snapshot().Active {
		s.writeError(w, navigation.ErrNoActiveSession)
		return
	}
	rt, err := s.resolveRoute(r, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := s.nav.Reroute(rt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	if s.push == nil {
		s.writeError(w, errPushDisabled)
		return
	}
	var req fixRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if !s.nav.Snapshot().Active {
		s.writeError(w, navigation.ErrNoActiveSession)
		return
	}

	var accepted bool
	if req.Error != "" {
		accepted = s.push.PushError(fixError(req.Error))
	} else {
		f := position.Fix{
			Coordinate:     geo.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude},
			AccuracyMeters: req.Accuracy,
			Heading:        req.Heading,
			SpeedMps:       req.Speed,
			Time:           time.Now(),
		}
		if req.Timestamp != nil {
			f.Time = *req.Timestamp
		}
		accepted = s.push.Push(f)
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.nav.ToggleAudio()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"audioEnabled": enabled})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	snap, err := s.nav.End()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleTone renders the warning pattern for a severity as a WAV file.
func (s *Server) handleTone(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("severity")
	if name == "" {
		name = hazard.SeverityMedium.String()
	}
	sev, err := hazard.ParseSeverity(name)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	var buf bytes.Buffer
	samples := alert.Synthesize(alert.PatternFor(sev), alert.DefaultSampleRate)
	if err := alert.WriteWAV(&buf, samples, alert.DefaultSampleRate); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) resolveRoute(r *http.Request, req routeRequest) (*route.Route, error) {
	if req.Route != nil {
		return req.Route.Route()
	}
	if req.Origin == nil || req.Destination == nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, errMissingRouting)
	}
	if s.planner == nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, errNoPlanner)
	}
	rt, err := s.planner.Plan(r.Context(), route.Request{
		Origin:      *req.Origin,
		Destination: *req.Destination,
		Profile:     req.Profile,
		VehicleType: req.VehicleType,
		AvoidHills:  req.AvoidHills,
	})
	if err != nil {
		if errors.Is(err, route.ErrNoRoute) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUpstream, err)
	}
	return rt, nil
}

func (s *Server) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func fixError(code string) error {
	switch code {
	case "permission_denied":
		return position.ErrPermissionDenied
	case "timeout":
		return position.ErrTimeout
	default:
		return position.ErrUnavailable
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, route.ErrInvalidRoute):
		return http.StatusBadRequest
	case errors.Is(err, navigation.ErrNoActiveSession), errors.Is(err, route.ErrNoRoute):
		return http.StatusNotFound
	case errors.Is(err, navigation.ErrSessionActive), errors.Is(err, errPushDisabled):
		return http.StatusConflict
	case errors.Is(err, errUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "status", status, "error", err)
	} else {
		s.log.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
