package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/realtime"
)

// newMux creates the HTTP router. Routes map 1:1 onto the progress service
// operations, plus health checks, the xlsx report download, and the websocket
// event stream. ready probes backing connections; nil means always ready
// (in-memory store).
func newMux(svc *progress.Service, hub *realtime.Hub, ready func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				slog.Warn("readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	mux.HandleFunc("GET /v1/users/{id}/progress", func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.GetUserProgress(r.PathValue("id"))
		respond(w, summary, err)
	})

	mux.HandleFunc("DELETE /v1/users/{id}/progress", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ResetUserProgress(r.PathValue("id")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	})

	mux.HandleFunc("PATCH /v1/users/{id}/chapters/{chapter}", func(w http.ResponseWriter, r *http.Request) {
		chapterID, err := strconv.Atoi(r.PathValue("chapter"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("chapter id must be an integer"))
			return
		}
		var upd progress.ChapterUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		result, err := svc.UpdateChapterProgress(r.PathValue("id"), chapterID, upd)
		respond(w, result, err)
	})

	mux.HandleFunc("PUT /v1/users/{id}/skills/{skill}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Progress int `json:"progress"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		state, err := svc.UpdateSkillProgress(r.PathValue("id"), r.PathValue("skill"), body.Progress)
		respond(w, state, err)
	})

	mux.HandleFunc("POST /v1/users/{id}/activities", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Type             string `json:"type"`
			Title            string `json:"title"`
			Description      string `json:"description"`
			TimeSpentMinutes int    `json:"time_spent_minutes"`
			PointsEarned     int    `json:"points_earned"`
			ChapterID        *int   `json:"chapter_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		activityType, ok := progress.ParseActivityType(body.Type)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown activity type: "+body.Type))
			return
		}
		entry, err := svc.LogActivity(r.PathValue("id"), progress.ActivityInput{
			Type:             activityType,
			Title:            body.Title,
			Description:      body.Description,
			TimeSpentMinutes: body.TimeSpentMinutes,
			PointsEarned:     body.PointsEarned,
			ChapterID:        body.ChapterID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	})

	mux.HandleFunc("GET /v1/users/{id}/dashboard", func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.GetDashboardStats(r.Context(), r.PathValue("id"))
		respond(w, stats, err)
	})

	mux.HandleFunc("GET /v1/users/{id}/streak", func(w http.ResponseWriter, r *http.Request) {
		streak, err := svc.CalculateLearningStreak(r.PathValue("id"))
		respond(w, streak, err)
	})

	mux.HandleFunc("GET /v1/users/{id}/mastery", func(w http.ResponseWriter, r *http.Request) {
		mastery, err := svc.CalculateSkillsMastery(r.PathValue("id"))
		respond(w, mastery, err)
	})

	mux.HandleFunc("GET /v1/users/{id}/roadmap", func(w http.ResponseWriter, r *http.Request) {
		roadmap, err := svc.GetRoadmapProgress(r.PathValue("id"))
		respond(w, roadmap, err)
	})

	mux.HandleFunc("GET /v1/users/{id}/report.xlsx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="progress-report.xlsx"`)
		if err := svc.WriteReport(r.PathValue("id"), w); err != nil {
			slog.Error("report export failed", "user_id", r.PathValue("id"), "error", err)
		}
	})

	mux.HandleFunc("GET /v1/users/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeUser(w, r, r.PathValue("id"))
	})

	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// respond writes v as JSON, mapping errors to status codes.
func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, progress.ErrInvalidInput) {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	slog.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
