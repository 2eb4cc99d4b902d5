// Package service реализует бизнес-логику сервиса выставления счетов.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/billdesk/internal/document"
	"github.com/mmeshcher/billdesk/internal/model"
	"github.com/mmeshcher/billdesk/internal/repository"
	"github.com/mmeshcher/billdesk/internal/snapshot"
	"github.com/mmeshcher/billdesk/internal/validation"
)

// DefaultClientName подставляется в счёт, если имя клиента не указано.
const DefaultClientName = "Guest"

// ErrInvalidCredentials возвращается при неверном логине или пароле оператора.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Repository описывает контракт хранилища, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	AppendBill(ctx context.Context, clientName string, items []model.LineItem, grandTotal model.Amount) (*model.BillRecord, error)
	ListBills(ctx context.Context) ([]model.BillRecord, error)
	GetBill(ctx context.Context, id int64) (*model.BillRecord, error)

	ListItems(ctx context.Context) ([]model.CatalogItem, error)
	CreateItem(ctx context.Context, name string, price model.Amount) (int64, error)
	DeleteItem(ctx context.Context, id int64) error

	CreateOperator(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetOperatorByLogin(ctx context.Context, login string) (*model.Operator, error)
}

// SnapshotEncoder кодирует данные счёта в изображение.
type SnapshotEncoder interface {
	Encode(payload any) ([]byte, error)
}

// DocumentRenderer формирует печатный документ счёта.
type DocumentRenderer interface {
	Render(in document.Input) (*document.Document, error)
}

// Option настраивает Service.
type Option func(*Service)

// WithSnapshotBeforeArchive включает кодирование снимка до записи в архив:
// слишком большой счёт отклоняется, не оставляя архивной записи без документа.
func WithSnapshotBeforeArchive(enabled bool) Option {
	return func(s *Service) {
		s.snapshotFirst = enabled
	}
}

// WithEncoder заменяет кодировщик снимков.
func WithEncoder(e SnapshotEncoder) Option {
	return func(s *Service) {
		s.encoder = e
	}
}

// WithRenderer заменяет генератор документов.
func WithRenderer(r DocumentRenderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// Service содержит бизнес-логику формирования и архивирования счетов.
type Service struct {
	repo          Repository
	encoder       SnapshotEncoder
	renderer      DocumentRenderer
	logger        *zap.Logger
	snapshotFirst bool
}

// NewService создаёт сервис с указанным хранилищем.
func NewService(repo Repository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		repo:     repo,
		encoder:  snapshot.NewEncoder(),
		renderer: document.NewRenderer(document.DefaultTitle, true),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// GrandTotal суммирует переданные клиентом суммы позиций без пересчёта цены на количество.
func GrandTotal(items []model.LineItem) model.Amount {
	totals := make([]model.Amount, 0, len(items))
	for _, it := range items {
		totals = append(totals, it.Total)
	}
	return model.SumAmounts(totals)
}

// Generate проверяет запрос, сохраняет счёт в архив и возвращает PDF с QR-кодом.
//
// По умолчанию запись в архив выполняется до кодирования снимка, поэтому при
// ErrPayloadTooLarge счёт уже сохранён, а документа нет.
func (s *Service) Generate(ctx context.Context, req model.BillRequest) (*model.Bill, error) {
	if err := validation.ValidateBillRequest(req); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.ClientName) == "" {
		req.ClientName = DefaultClientName
	}
	grandTotal := GrandTotal(req.Items)

	var (
		qr  []byte
		err error
	)
	if s.snapshotFirst {
		if qr, err = s.encoder.Encode(req); err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
	}

	rec, err := s.repo.AppendBill(ctx, req.ClientName, req.Items, grandTotal)
	if err != nil {
		return nil, fmt.Errorf("archive bill: %w", err)
	}

	if qr == nil {
		if qr, err = s.encoder.Encode(req); err != nil {
			s.logger.Warn("bill archived without document", zap.Int64("billID", rec.ID), zap.Error(err))
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
	}

	doc, err := s.renderer.Render(document.Input{
		ClientName:  rec.ClientName,
		Items:       rec.Items,
		GrandTotal:  rec.GrandTotal,
		Snapshot:    qr,
		GeneratedAt: rec.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("bill archived without document", zap.Int64("billID", rec.ID), zap.Error(err))
		return nil, fmt.Errorf("render bill: %w", err)
	}

	return &model.Bill{Record: *rec, Document: doc.Bytes, Pages: doc.Pages}, nil
}

// ListHistory возвращает архив счетов, начиная с самых новых.
func (s *Service) ListHistory(ctx context.Context) ([]model.BillRecord, error) {
	return s.repo.ListBills(ctx)
}

// Reprint повторно формирует документ по архивной записи. Архив при этом не меняется.
func (s *Service) Reprint(ctx context.Context, id int64) (*model.Bill, error) {
	rec, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}

	qr, err := s.encoder.Encode(model.BillRequest{ClientName: rec.ClientName, Items: rec.Items})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	doc, err := s.renderer.Render(document.Input{
		ClientName:  rec.ClientName,
		Items:       rec.Items,
		GrandTotal:  rec.GrandTotal,
		Snapshot:    qr,
		GeneratedAt: rec.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("render bill %d: %w", id, err)
	}

	return &model.Bill{Record: *rec, Document: doc.Bytes, Pages: doc.Pages}, nil
}

// ListItems возвращает меню.
func (s *Service) ListItems(ctx context.Context) ([]model.CatalogItem, error) {
	return s.repo.ListItems(ctx)
}

// AddItem добавляет позицию в меню.
func (s *Service) AddItem(ctx context.Context, name string, price model.Amount) (int64, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateCatalogItem(name, price); err != nil {
		return 0, err
	}
	return s.repo.CreateItem(ctx, name, price)
}

// DeleteItem удаляет позицию из меню.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}

// RegisterOperator регистрирует нового оператора.
func (s *Service) RegisterOperator(ctx context.Context, login, password string) (int64, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateOperator(ctx, login, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrOperatorExists) {
			return 0, repository.ErrOperatorExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateOperator проверяет логин и пароль оператора и возвращает его идентификатор.
func (s *Service) AuthenticateOperator(ctx context.Context, login, password string) (int64, error) {
	op, err := s.repo.GetOperatorByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword(op.PasswordHash, []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}

	return op.ID, nil
}
