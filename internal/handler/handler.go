// Package handler содержит HTTP-обработчики API сервиса выставления счетов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/billdesk/internal/middleware"
	"github.com/mmeshcher/billdesk/internal/model"
	"github.com/mmeshcher/billdesk/internal/repository"
	"github.com/mmeshcher/billdesk/internal/service"
	"github.com/mmeshcher/billdesk/internal/snapshot"
	"github.com/mmeshcher/billdesk/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Generate(ctx context.Context, req model.BillRequest) (*model.Bill, error)
	ListHistory(ctx context.Context) ([]model.BillRecord, error)
	Reprint(ctx context.Context, id int64) (*model.Bill, error)

	ListItems(ctx context.Context) ([]model.CatalogItem, error)
	AddItem(ctx context.Context, name string, price model.Amount) (int64, error)
	DeleteItem(ctx context.Context, id int64) error

	RegisterOperator(ctx context.Context, login, password string) (int64, error)
	AuthenticateOperator(ctx context.Context, login, password string) (int64, error)

	Ping(ctx context.Context) error
}

// Handler реализует HTTP-обработчики API сервиса выставления счетов.
type Handler struct {
	service Service
	logger  *zap.Logger
	auth    *middleware.SessionAuth
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.SessionAuth) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		auth:    auth,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeDocument(w http.ResponseWriter, bill *model.Bill) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="bill.pdf"`)
	w.Header().Set("X-Bill-ID", strconv.FormatInt(bill.Record.ID, 10))
	w.Header().Set("X-Bill-Pages", strconv.Itoa(bill.Pages))
	w.Header().Set("Content-Length", strconv.Itoa(len(bill.Document)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bill.Document)
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register регистрирует оператора и сразу открывает для него сессию.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	operatorID, err := h.service.RegisterOperator(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrOperatorExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register operator error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.auth.SetSessionCookie(w, operatorID)
	w.WriteHeader(http.StatusOK)
}

// Login проверяет логин и пароль оператора и выдаёт cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	operatorID, err := h.service.AuthenticateOperator(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login operator error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.auth.SetSessionCookie(w, operatorID)
	w.WriteHeader(http.StatusOK)
}

// GenerateBill формирует счёт, сохраняет его в архив и отдаёт PDF.
func (h *Handler) GenerateBill(w http.ResponseWriter, r *http.Request) {
	var req model.BillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	bill, err := h.service.Generate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, snapshot.ErrPayloadTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, snapshot.ErrPayloadTooLarge.Error())
		case errors.Is(err, repository.ErrStorageUnavailable):
			h.logger.Error("archive unavailable", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			h.logger.Error("generate bill error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	operatorID, _ := middleware.OperatorIDFromContext(r.Context())
	h.logger.Info("bill generated",
		zap.Int64("billID", bill.Record.ID),
		zap.Int64("operatorID", operatorID),
		zap.Int("pages", bill.Pages),
	)

	writeDocument(w, bill)
}

// GetHistory возвращает архив счетов, начиная с самых новых.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListHistory(r.Context())
	if err != nil {
		h.logger.Error("list history error", zap.Error(err))
		if errors.Is(err, repository.ErrStorageUnavailable) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(records) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// ReprintBill повторно формирует PDF архивного счёта.
func (h *Handler) ReprintBill(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	bill, err := h.service.Reprint(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBillNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, snapshot.ErrPayloadTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, snapshot.ErrPayloadTooLarge.Error())
		case errors.Is(err, repository.ErrStorageUnavailable):
			h.logger.Error("archive unavailable", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			h.logger.Error("reprint bill error", zap.Error(err), zap.Int64("billID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeDocument(w, bill)
}

// GetItems возвращает меню.
func (h *Handler) GetItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		h.logger.Error("list items error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

type itemRequest struct {
	Name  string       `json:"name"`
	Price model.Amount `json:"price"`
}

type itemResponse struct {
	ID int64 `json:"id"`
}

// AddItem добавляет позицию в меню.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	id, err := h.service.AddItem(r.Context(), req.Name, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrItemExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("add item error", zap.Error(err), zap.String("name", req.Name))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, itemResponse{ID: id})
}

// DeleteItem удаляет позицию меню.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete item error", zap.Error(err), zap.Int64("itemID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Ping сообщает, доступно ли хранилище.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("ping failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
