package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ohftok/ohftok-render/internal/admission"
	"github.com/ohftok/ohftok-render/internal/config"
	"github.com/ohftok/ohftok-render/internal/process"
	"github.com/ohftok/ohftok-render/internal/render"
	"github.com/ohftok/ohftok-render/internal/videos"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSMiddleware())

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Verifier, cfg.Logger))
		if cfg.RateLimit != nil {
			r.With(cfg.RateLimit).Post("/generate", generateHandler(cfg))
		} else {
			r.Post("/generate", generateHandler(cfg))
		}
		r.Get("/status/{id}", statusHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func generateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Prompt == "" {
			WriteError(w, http.StatusBadRequest, "Prompt is required", "BAD_REQUEST")
			return
		}

		userID, _ := ctx.Value(UserIDKey).(string)

		decision, err := cfg.Guards.Check(ctx, admission.Request{UserID: userID, Prompt: req.Prompt})
		if err != nil {
			cfg.Logger.Error("admission check failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "admission check failed", "INTERNAL_ERROR")
			return
		}
		if !decision.Allowed {
			if decision.Reason == admission.ReasonModerated {
				// Not an error: the prompt was understood and rejected on
				// policy, with no provider call and no cost.
				WriteJSON(w, http.StatusOK, GenerateResponse{Success: true, IsModeratedContent: true})
				return
			}
			WriteError(w, http.StatusForbidden, decision.Message, deniedCode(decision.Reason))
			return
		}

		pred, err := cfg.Render.CreatePrediction(ctx, req.Prompt)
		if err != nil {
			cfg.Logger.Error("prediction create failed", "error", err)
			// The generation never started, so quota consumed during
			// admission goes back.
			if decision.Release != nil {
				if rerr := decision.Release(ctx); rerr != nil {
					cfg.Logger.Error("quota release failed", "error", rerr)
				}
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "UPSTREAM_ERROR")
			return
		}

		rec := &videos.Record{
			ID:            pred.ID,
			Title:         req.Prompt,
			IsAIGenerated: true,
			UserID:        userID,
		}
		if err := cfg.Videos.Create(ctx, rec); err != nil {
			// The record is re-created by merge on first status update, so
			// submission still succeeds.
			cfg.Logger.Warn("video record create failed", "prediction_id", pred.ID, "error", err)
		}

		WriteJSON(w, http.StatusOK, GenerateResponse{
			Success: true,
			ID:      pred.ID,
			Status:  pred.Status,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "Prediction ID is required", "BAD_REQUEST")
			return
		}

		pred, err := cfg.Render.GetPrediction(ctx, id)
		if err != nil {
			var apiErr *render.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
				return
			}
			cfg.Logger.Error("prediction get failed", "prediction_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, err.Error(), "UPSTREAM_ERROR")
			return
		}

		resp := StatusResponse{
			Success:  true,
			Status:   pred.Status,
			Progress: render.Progress(pred.Status),
			Output:   pred.Output.URL(),
			Error:    pred.Error,
		}

		if pred.Status == render.StatusSucceeded {
			fillAssets(ctx, cfg, id, pred, &resp)
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

// fillAssets runs post-processing for a succeeded job, or reuses the
// persisted locators when an earlier poll already processed it.
func fillAssets(ctx context.Context, cfg ServerConfig, id string, pred *render.Prediction, resp *StatusResponse) {
	rec, err := cfg.Videos.Get(ctx, id)
	if err != nil {
		cfg.Logger.Warn("video record lookup failed", "video_id", id, "error", err)
	}

	if rec != nil && rec.Processed {
		resp.VideoURL = rec.URL
		resp.ThumbnailURL = rec.ThumbnailURL
		resp.PreviewURL = rec.PreviewURL
		resp.HLSURL = rec.HLSURL
		return
	}

	title := ""
	machineGenerated := true
	if rec != nil {
		title = rec.Title
		machineGenerated = rec.IsAIGenerated
	}

	outcome, err := cfg.Processor.HandleSuccess(ctx, id, title, machineGenerated, pred.Output.URL())
	if err != nil {
		// Generation succeeded; only post-processing failed. Keep the
		// states distinct instead of reporting the job as failed.
		resp.ProcessingError = err.Error()
		return
	}

	resp.VideoURL = outcome.Bundle.VideoURL
	resp.ThumbnailURL = outcome.Bundle.ThumbnailURL
	resp.PreviewURL = outcome.Bundle.PreviewURL
	resp.HLSURL = outcome.Bundle.HLSURL
	resp.ProcessingError = outcome.Bundle.ErrorSummary()
}

func deniedCode(reason admission.Reason) string {
	switch reason {
	case admission.ReasonNoBalance:
		return "INSUFFICIENT_BALANCE"
	case admission.ReasonDailyLimit:
		return "DAILY_LIMIT"
	default:
		return "FORBIDDEN"
	}
}

// SuccessProcessor is what the status handler needs from internal/process.
type SuccessProcessor interface {
	HandleSuccess(ctx context.Context, videoID, title string, machineGenerated bool, outputURL string) (*process.Outcome, error)
}
