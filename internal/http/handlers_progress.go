package http

import (
	"net/http"

	"github.com/google/uuid"

	"obras/internal/core"
)

type setProgressRequest struct {
	Progress int `json:"progress"`
}

func (s *Server) handleSetCategoryProgress(w http.ResponseWriter, r *http.Request) {
	var req setProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.progress.SetCategoryProgress(r.Context(), r.PathValue("workId"), r.PathValue("categoryId"), req.Progress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReport(b.WorkID)
	writeJSON(w, http.StatusOK, b)
}

type dailyLogRequest struct {
	LogID   string                `json:"logId"`
	Updates []core.ProgressUpdate `json:"updates"`
}

func (s *Server) handleApplyDailyLog(w http.ResponseWriter, r *http.Request) {
	var req dailyLogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.LogID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "logId is required"})
		return
	}

	b, err := s.progress.ApplyDailyLog(r.Context(), r.PathValue("workId"), req.LogID, req.Updates)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReport(b.WorkID)
	writeJSON(w, http.StatusOK, b)
}

type measurementRequest struct {
	LogID  string `json:"logId"`
	TaskID string `json:"taskId"`
	Delta  int    `json:"progressDelta"`
}

func (s *Server) handleApplyMeasurement(w http.ResponseWriter, r *http.Request) {
	var req measurementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.TaskID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "taskId is required"})
		return
	}
	if req.LogID == "" {
		req.LogID = uuid.NewString()
	}

	b, err := s.progress.ApplyMeasurement(r.Context(), r.PathValue("workId"), req.LogID, req.TaskID, req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReport(b.WorkID)
	writeJSON(w, http.StatusOK, b)
}

type workProgressResponse struct {
	WorkID   string              `json:"workId"`
	Progress int                 `json:"progress"`
	Method   core.ProgressMethod `json:"method"`
}

func (s *Server) handleWorkProgress(w http.ResponseWriter, r *http.Request) {
	workID := r.PathValue("workId")
	progress, method, err := s.aggregator.WorkProgress(r.Context(), workID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workProgressResponse{WorkID: workID, Progress: progress, Method: method})
}

type setMethodRequest struct {
	Method core.ProgressMethod `json:"method"`
}

func (s *Server) handleSetProgressMethod(w http.ResponseWriter, r *http.Request) {
	var req setMethodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	workID := r.PathValue("workId")
	if err := s.aggregator.SetMethod(r.Context(), workID, req.Method); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setMethodRequest{Method: req.Method})
}

func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.stages.ListStages(r.Context(), r.PathValue("workId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stages == nil {
		stages = []core.WorkStage{}
	}
	writeJSON(w, http.StatusOK, stages)
}

type addStageRequest struct {
	Name   string           `json:"name"`
	Status core.StageStatus `json:"status,omitempty"`
}

func (s *Server) handleAddStage(w http.ResponseWriter, r *http.Request) {
	var req addStageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status == "" {
		req.Status = core.StagePending
	}

	stage := core.WorkStage{
		ID:     uuid.NewString(),
		WorkID: r.PathValue("workId"),
		Name:   sanitizeInput(req.Name),
		Status: req.Status,
	}
	if err := s.stages.AddStage(r.Context(), stage); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stage)
}

type setStageStatusRequest struct {
	Status core.StageStatus `json:"status"`
}

func (s *Server) handleSetStageStatus(w http.ResponseWriter, r *http.Request) {
	var req setStageStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	workID := r.PathValue("workId")
	stageID := r.PathValue("stageId")
	if err := s.stages.SetStageStatus(r.Context(), workID, stageID, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setStageStatusRequest{Status: req.Status})
}
