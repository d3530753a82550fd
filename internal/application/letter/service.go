package letter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/domain/shared"
	infra "github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/storage"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DocumentAssembler builds complete letter documents
type DocumentAssembler interface {
	Assemble(ctx context.Context, tmpl *domain.Template, fields domain.FieldMap, opts *infra.AssembleOptions) (string, error)
}

// UploadURLSigner issues presigned upload URLs for object storage
type UploadURLSigner interface {
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	ObjectRef(storageKey string) string
}

// Upload kinds accepted by RequestUpload
const (
	UploadKindSignature = "signatures"
	UploadKindPhoto     = "photos"
)

// LetterService handles the letter request workflow: submission, preview,
// approval with number allocation, rejection and final rendering
type LetterService struct {
	requests     domain.RequestRepository
	templates    domain.TemplateRepository
	allocator    *domain.Allocator
	assembler    DocumentAssembler
	uploads      UploadURLSigner
	substitutor  infra.Substitutor
	metrics      *telemetry.LetterMetrics
	fixedYear    int
	now          func() time.Time
	logger       *zap.Logger

	locksMu sync.Mutex
	locks   map[uuid.UUID]*requestLock
}

// LetterServiceOption configures a LetterService
type LetterServiceOption func(*LetterService)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) LetterServiceOption {
	return func(s *LetterService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSubstitutor sets the field validation used before approval and final
// rendering. A strict substitutor rejects letters with missing template fields.
func WithSubstitutor(sub infra.Substitutor) LetterServiceOption {
	return func(s *LetterService) {
		s.substitutor = sub
	}
}

// WithMetrics counts allocated letter numbers
func WithMetrics(m *telemetry.LetterMetrics) LetterServiceOption {
	return func(s *LetterService) {
		s.metrics = m
	}
}

// WithFixedYear pins the year printed in letter numbers. Zero uses the clock.
func WithFixedYear(year int) LetterServiceOption {
	return func(s *LetterService) {
		s.fixedYear = year
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) LetterServiceOption {
	return func(s *LetterService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithUploadSigner enables presigned signature and photo uploads
func WithUploadSigner(signer UploadURLSigner) LetterServiceOption {
	return func(s *LetterService) {
		s.uploads = signer
	}
}

// NewLetterService creates a new LetterService
func NewLetterService(
	requests domain.RequestRepository,
	templates domain.TemplateRepository,
	allocator *domain.Allocator,
	assembler DocumentAssembler,
	opts ...LetterServiceOption,
) *LetterService {
	s := &LetterService{
		requests:  requests,
		templates: templates,
		allocator: allocator,
		assembler: assembler,
		now:       time.Now,
		logger:    zap.NewNop(),
		locks:     make(map[uuid.UUID]*requestLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LetterTypes lists every known letter type
func (s *LetterService) LetterTypes() []LetterTypeResponse {
	types := domain.AllLetterTypes()
	out := make([]LetterTypeResponse, 0, len(types))
	for _, lt := range types {
		out = append(out, LetterTypeResponse{
			Type:                     lt.String(),
			Code:                     lt.TypeCode(),
			Name:                     lt.DisplayName(),
			RequiresStudentSignature: lt.RequiresStudentSignature(),
			English:                  lt.IsEnglish(),
		})
	}
	return out
}

// PeekNumber returns the number the next approval of letterType would receive
func (s *LetterService) PeekNumber(ctx context.Context, letterType string) (*NumberResponse, error) {
	lt, err := parseType(letterType)
	if err != nil {
		return nil, err
	}
	year := s.year()
	number, err := s.allocator.Peek(ctx, lt, year)
	if err != nil {
		return nil, fmt.Errorf("failed to peek letter number: %w", err)
	}
	return &NumberResponse{Type: lt.String(), Year: year, Number: number}, nil
}

// Submit creates a pending letter request
func (s *LetterService) Submit(ctx context.Context, req SubmitRequest) (*LetterRequestResponse, error) {
	lt, err := parseType(req.Type)
	if err != nil {
		return nil, err
	}
	request, err := domain.NewLetterRequest(lt, req.Fields, req.StudentSignatureRef)
	if err != nil {
		return nil, err
	}
	request.PhotoRef = strings.TrimSpace(req.PhotoRef)

	if err := s.requests.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save letter request: %w", err)
	}
	s.logger.Info("letter request submitted",
		zap.String("letter_request_id", request.ID.String()),
		zap.String("letter_type", lt.String()))

	resp := ToLetterRequestResponse(request)
	return &resp, nil
}

// Get returns a letter request
func (s *LetterService) Get(ctx context.Context, id uuid.UUID) (*LetterRequestResponse, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToLetterRequestResponse(request)
	return &resp, nil
}

// ListByStatus returns the newest requests in a status
func (s *LetterService) ListByStatus(ctx context.Context, status string, limit int) ([]LetterRequestResponse, error) {
	st := domain.RequestStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !st.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid request status: "+status)
	}
	requests, err := s.requests.FindByStatus(ctx, st, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list letter requests: %w", err)
	}
	out := make([]LetterRequestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, ToLetterRequestResponse(&requests[i]))
	}
	return out, nil
}

// Preview assembles a document without allocating a number. A request that
// is already numbered previews with its own number.
func (s *LetterService) Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error) {
	fields := req.Fields
	signatures := req.Signatures
	photo := req.Photo
	letterType := req.Type
	number := ""

	if req.RequestID != nil {
		stored, err := s.requests.FindByID(ctx, *req.RequestID)
		if err != nil {
			return nil, err
		}
		if letterType == "" {
			letterType = stored.Type.String()
		}
		if fields.Len() == 0 {
			fields = stored.Fields
		}
		if signatures.Student == "" {
			signatures.Student = stored.StudentSignatureRef
		}
		if photo == "" {
			photo = stored.PhotoRef
		}
		number = stored.LetterNumber
	}

	lt, err := parseType(letterType)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.templates.FindByType(ctx, lt)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	year := s.year()
	if number == "" {
		number, err = s.allocator.Peek(ctx, lt, year)
		if err != nil {
			s.logger.Warn("could not peek letter number, preview shows a pending number",
				zap.String("letter_type", lt.String()), zap.Error(err))
			number = domain.PendingNumber(s.allocator.Prefix(), lt, year)
		}
	}

	html, err := s.assembler.Assemble(ctx, tmpl, fields, &infra.AssembleOptions{
		Number: number,
		Year:   year,
		Date:   s.now(),
		Signatures: infra.Signatures{
			Institutional: signatures.Institutional,
			Student:       signatures.Student,
		},
		Photo: photo,
	})
	if err != nil {
		return nil, err
	}
	return &PreviewResponse{HTML: html, Number: number}, nil
}

// Approve approves a pending request and assigns its number. Approving a
// request that already carries a number returns it unchanged.
func (s *LetterService) Approve(ctx context.Context, id uuid.UUID, approver string) (_ *LetterRequestResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "letter.approve",
		attribute.String(telemetry.SpanAttrRequestID, id.String()))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	unlock := s.lock(id)
	defer unlock()

	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.HasNumber() {
		resp := ToLetterRequestResponse(request)
		return &resp, nil
	}
	if err := request.CanBeApproved(); err != nil {
		return nil, err
	}
	if s.substitutor.Strict {
		if err := s.checkFields(ctx, request); err != nil {
			return nil, err
		}
	}

	now := s.now()
	number, err := s.allocator.Allocate(ctx, request.Type, s.yearAt(now))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate letter number: %w", err)
	}
	s.metrics.RecordNumberAllocated(ctx, request.Type.String())
	span.SetAttributes(
		attribute.String(telemetry.SpanAttrLetterType, request.Type.String()),
		attribute.String(telemetry.SpanAttrLetterNumber, number))
	if err := request.Approve(number, strings.TrimSpace(approver), now); err != nil {
		return nil, err
	}

	if err := s.requests.Save(ctx, request); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// another instance approved first; its number stands and ours is skipped
			current, findErr := s.requests.FindByID(ctx, id)
			if findErr == nil && current.HasNumber() {
				s.logger.Warn("letter request approved concurrently, allocated number skipped",
					zap.String("letter_request_id", id.String()),
					zap.String("skipped_number", number),
					zap.String("letter_number", current.LetterNumber))
				resp := ToLetterRequestResponse(current)
				return &resp, nil
			}
		}
		s.logger.Error("approved letter could not be saved, number skipped",
			zap.String("letter_request_id", id.String()),
			zap.String("skipped_number", number),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save approved letter request: %w", err)
	}

	s.logger.Info("letter request approved",
		zap.String("letter_request_id", id.String()),
		zap.String("letter_number", number),
		zap.String("approved_by", request.ApprovedBy))

	resp := ToLetterRequestResponse(request)
	return &resp, nil
}

// Reject closes a pending request without a number
func (s *LetterService) Reject(ctx context.Context, id uuid.UUID, reason string) (*LetterRequestResponse, error) {
	unlock := s.lock(id)
	defer unlock()

	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := request.Reject(reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save rejected letter request: %w", err)
	}
	s.logger.Info("letter request rejected", zap.String("letter_request_id", id.String()))

	resp := ToLetterRequestResponse(request)
	return &resp, nil
}

// RenderDocument renders the final document of an approved request with its
// stored number. It never allocates.
func (s *LetterService) RenderDocument(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.IsApproved() {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Only approved letters have a final document, status is "+request.Status.String())
	}

	tmpl, err := s.templates.FindByType(ctx, request.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if tmpl != nil {
		if err := s.substitutor.Validate(tmpl.RawContent, request.Fields); err != nil {
			return nil, err
		}
	}

	date := request.UpdatedAt
	if request.ApprovedAt != nil {
		date = *request.ApprovedAt
	}
	html, err := s.assembler.Assemble(ctx, tmpl, request.Fields, &infra.AssembleOptions{
		Number:     request.LetterNumber,
		Final:      true,
		Year:       request.Year(),
		Date:       date,
		Signatures: infra.Signatures{Student: request.StudentSignatureRef},
		Photo:      request.PhotoRef,
	})
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{RequestID: request.ID, Number: request.LetterNumber, HTML: html}, nil
}

// RequestUpload issues a presigned URL for a student signature or photo and
// attaches the resulting reference to the pending request
func (s *LetterService) RequestUpload(ctx context.Context, id uuid.UUID, kind, contentType string) (*SignatureUploadResponse, error) {
	if s.uploads == nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Object storage is not configured")
	}
	if kind != UploadKindSignature && kind != UploadKindPhoto {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown upload kind: "+kind)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, shared.NewDomainError("INVALID_INPUT", "Only images can be uploaded")
	}

	unlock := s.lock(id)
	defer unlock()

	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.AssetKey(kind, request.ID, contentType, request.CreatedAt)
	ref := s.uploads.ObjectRef(key)
	switch kind {
	case UploadKindSignature:
		if err := request.AttachStudentSignature(ref); err != nil {
			return nil, err
		}
	case UploadKindPhoto:
		if request.Status != domain.RequestStatusPending {
			return nil, shared.NewDomainError("INVALID_STATE", "Photo can only change while pending")
		}
		request.PhotoRef = ref
	}

	url, expiresAt, err := s.uploads.GenerateUploadURL(ctx, key, contentType, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save letter request: %w", err)
	}
	return &SignatureUploadResponse{Ref: ref, UploadURL: url, ExpiresAt: expiresAt}, nil
}

// ReconcileCounters raises every counter to at least the highest issued
// sequence of its type
func (s *LetterService) ReconcileCounters(ctx context.Context) error {
	if err := s.allocator.ReconcileAll(ctx, s.requests); err != nil {
		return fmt.Errorf("failed to reconcile letter counters: %w", err)
	}
	return nil
}

func (s *LetterService) checkFields(ctx context.Context, request *domain.LetterRequest) error {
	tmpl, err := s.templates.FindByType(ctx, request.Type)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}
	if tmpl == nil {
		return nil
	}
	return s.substitutor.Validate(tmpl.RawContent, request.Fields)
}

// requestLock serialises work on one letter request. refs counts holders and
// waiters so the entry can be dropped once nobody uses it.
type requestLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the lock of request id and returns its release function
func (s *LetterService) lock(id uuid.UUID) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &requestLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// pendingLocks reports how many request locks are held or awaited
func (s *LetterService) pendingLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

func (s *LetterService) year() int {
	return s.yearAt(s.now())
}

func (s *LetterService) yearAt(t time.Time) int {
	if s.fixedYear > 0 {
		return s.fixedYear
	}
	return t.Year()
}

func parseType(s string) (domain.LetterType, error) {
	lt := domain.ParseLetterType(s)
	if !lt.IsValid() {
		return "", shared.NewDomainError("INVALID_LETTER_TYPE", "Letter type is required")
	}
	return lt, nil
}
