package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/simmer/internal/model"
)

// QueueCounter はキューのステータス別件数を取得するインターフェース。
type QueueCounter interface {
	CountByStatus(ctx context.Context) (map[model.QueueStatus]int, error)
}

// RecipeCounter は保存済みレシピ総数を取得するインターフェース。
type RecipeCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatusHandler はキュー運用状況APIのHTTPハンドラー。
type StatusHandler struct {
	queue   QueueCounter
	recipes RecipeCounter
	logger  *slog.Logger
}

// NewStatusHandler はStatusHandlerを生成する。
func NewStatusHandler(queue QueueCounter, recipes RecipeCounter, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		queue:   queue,
		recipes: recipes,
		logger:  logger,
	}
}

// queueStatusResponse はキュー運用状況のレスポンスボディ。
type queueStatusResponse struct {
	Queue        map[model.QueueStatus]int `json:"queue"`
	TotalRecipes int                       `json:"totalRecipes"`
}

// QueueStatus はキューのステータス別件数とレシピ総数を返す。
// GET /api/queue/status
//
// 件数0のステータスも省略せずに返す。
func (h *StatusHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.queue.CountByStatus(r.Context())
	if err != nil {
		h.logger.Error("queue status query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read queue status"})
		return
	}

	total, err := h.recipes.Count(r.Context())
	if err != nil {
		h.logger.Error("recipe count query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to count recipes"})
		return
	}

	if counts == nil {
		counts = make(map[model.QueueStatus]int)
	}
	for _, status := range []model.QueueStatus{
		model.QueueStatusPending, model.QueueStatusProcessing,
		model.QueueStatusCompleted, model.QueueStatusFailed, model.QueueStatusSkipped,
	} {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}

	writeJSON(w, http.StatusOK, queueStatusResponse{
		Queue:        counts,
		TotalRecipes: total,
	})
}
