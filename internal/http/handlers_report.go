package http

import (
	"net/http"

	"obras/internal/log"
)

func (s *Server) handleEarnedValueReport(w http.ResponseWriter, r *http.Request) {
	workID := r.PathValue("workId")
	logger := log.FromContext(r.Context())

	if report, found := s.reportCache.Get(workID); found {
		logger.DebugContext(r.Context(), "Report cache hit", log.FieldWorkID, workID)
		writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := s.reports.EarnedValue(r.Context(), workID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reportCache.Set(workID, report)

	logger.InfoContext(r.Context(), "Earned-value report generated",
		log.FieldWorkID, workID,
		"total_budget", formatReais(report.TotalBudget.Cents),
		"total_earned", formatReais(report.TotalEarned.Cents),
		"weighted_progress", report.WeightedProgress)

	writeJSON(w, http.StatusOK, report)
}
