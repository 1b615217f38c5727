// Package handler はHTTP APIのハンドラーを定義する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/simmer/internal/model"
)

// BatchRunner はキューバッチ処理1回分を実行するインターフェース。
type BatchRunner interface {
	// RunOnce は期限到来済みのキューアイテムを1バッチ処理する。
	RunOnce(ctx context.Context) (model.BatchResult, error)
}

// DiscoveryRunner はURL発見処理1回分を実行するインターフェース。
type DiscoveryRunner interface {
	// RunOnce は有効な全ドメインからレシピURLを発見しキューに登録する。
	RunOnce(ctx context.Context) (model.DiscoveryResult, error)
}

// SingleScraper は単一URLのスクレイプを実行するインターフェース。
type SingleScraper interface {
	// Scrape はURLをフェッチ・解析・保存し、型付き結果を返す。
	Scrape(ctx context.Context, rawURL string) model.ScrapeResult
}

// ScrapeHandler はスクレイプトリガーAPIのHTTPハンドラー。
// cronトリガーからのバッチ実行と、手動の単一URLスクレイプを受け付ける。
type ScrapeHandler struct {
	processor BatchRunner
	discovery DiscoveryRunner
	scraper   SingleScraper
	logger    *slog.Logger
}

// NewScrapeHandler はScrapeHandlerを生成する。
func NewScrapeHandler(processor BatchRunner, discovery DiscoveryRunner, scraper SingleScraper, logger *slog.Logger) *ScrapeHandler {
	return &ScrapeHandler{
		processor: processor,
		discovery: discovery,
		scraper:   scraper,
		logger:    logger,
	}
}

// batchResponse はバッチ処理トリガーのレスポンスボディ。
type batchResponse struct {
	Success bool `json:"success"`
	model.BatchResult
}

// discoveryResponse はURL発見トリガーのレスポンスボディ。
type discoveryResponse struct {
	Success bool `json:"success"`
	model.DiscoveryResult
}

// scrapeURLRequest は単一URLスクレイプのリクエストボディ。
type scrapeURLRequest struct {
	URL string `json:"url"`
}

// scrapeURLResponse は単一URLスクレイプのレスポンスボディ。
type scrapeURLResponse struct {
	Success  bool   `json:"success"`
	RecipeID string `json:"recipeId,omitempty"`
	Error    string `json:"error,omitempty"`
	URL      string `json:"url"`
}

// TriggerProcess はキューバッチ処理を1回実行する。
// POST /api/cron/scrape
//
// キュー読み取りエラー以外の個別の失敗はレスポンスのerrorsに集約され、
// HTTPステータスは200のまま返す。
func (h *ScrapeHandler) TriggerProcess(w http.ResponseWriter, r *http.Request) {
	result, err := h.processor.RunOnce(r.Context())

	resp := batchResponse{
		Success:     err == nil,
		BatchResult: result,
	}
	if err != nil {
		h.logger.Error("queue batch run failed", slog.String("error", err.Error()))
		resp.Errors = append(resp.Errors, model.URLError{Error: err.Error()})
	}

	writeJSON(w, http.StatusOK, resp)
}

// TriggerDiscover はURL発見処理を1回実行する。
// POST /api/cron/discover
func (h *ScrapeHandler) TriggerDiscover(w http.ResponseWriter, r *http.Request) {
	result, err := h.discovery.RunOnce(r.Context())

	resp := discoveryResponse{
		Success:         err == nil,
		DiscoveryResult: result,
	}
	if err != nil {
		h.logger.Error("discovery run failed", slog.String("error", err.Error()))
		resp.Errors = append(resp.Errors, model.DomainError{Error: err.Error()})
	}

	writeJSON(w, http.StatusOK, resp)
}

// ScrapeURL は指定された1URLを即時スクレイプする。
// POST /api/scrape
//
// ボディが不正な場合は400、スクレイプ失敗は422、成功は200を返す。
func (h *ScrapeHandler) ScrapeURL(w http.ResponseWriter, r *http.Request) {
	var req scrapeURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, scrapeURLResponse{
			Success: false,
			Error:   "request body must be JSON with a url field",
		})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, scrapeURLResponse{
			Success: false,
			Error:   "url is required",
		})
		return
	}

	result := h.scraper.Scrape(r.Context(), req.URL)
	if !result.Success {
		writeJSON(w, http.StatusUnprocessableEntity, scrapeURLResponse{
			Success: false,
			Error:   result.Error,
			URL:     result.URL,
		})
		return
	}

	writeJSON(w, http.StatusOK, scrapeURLResponse{
		Success:  true,
		RecipeID: result.RecipeID,
		URL:      result.URL,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
