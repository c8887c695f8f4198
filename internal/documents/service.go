package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"opsdesk/internal/activity"
	derrors "opsdesk/pkg/domain-errors"
	"opsdesk/pkg/platform/sentinel"
	"opsdesk/pkg/requestcontext"
)

// ActivityRecorder receives one entry per document mutation.
type ActivityRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, action, details string, metadata map[string]any)
}

const (
	actionCreated = activity.ActionDocumentCreated
	actionUpdated = activity.ActionDocumentUpdated
	actionDeleted = activity.ActionDocumentDeleted
)

// Service fronts the four document collections with validation, link checks
// and activity recording.
type Service struct {
	projects   Collection[Project]
	quotations Collection[Quotation]
	orders     Collection[PurchaseOrder]
	parties    Collection[Party]
	recorder   ActivityRecorder
	logger     *slog.Logger
}

func NewService(
	projects Collection[Project],
	quotations Collection[Quotation],
	orders Collection[PurchaseOrder],
	parties Collection[Party],
	recorder ActivityRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		projects:   projects,
		quotations: quotations,
		orders:     orders,
		parties:    parties,
		recorder:   recorder,
		logger:     logger,
	}
}

// ensureAbsent guards a create against overwriting an existing key.
func ensureAbsent[T any](ctx context.Context, col Collection[T], key string) error {
	_, err := col.Find(ctx, key)
	switch {
	case err == nil:
		return derrors.New(derrors.CodeConflict, fmt.Sprintf("%s already exists", key))
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	default:
		return derrors.Wrap(err, derrors.CodeInternal, "failed to check document")
	}
}

func mustFind[T any](ctx context.Context, col Collection[T], key string) (T, error) {
	doc, err := col.Find(ctx, key)
	switch {
	case err == nil:
		return doc, nil
	case errors.Is(err, sentinel.ErrNotFound):
		var zero T
		return zero, derrors.New(derrors.CodeNotFound, fmt.Sprintf("%s not found", key))
	default:
		var zero T
		return zero, derrors.Wrap(err, derrors.CodeInternal, "failed to load document")
	}
}

func (s *Service) record(ctx context.Context, action, collection, key string) {
	s.recorder.Record(ctx, requestcontext.UserID(ctx), action,
		fmt.Sprintf("%s %s", collection, key),
		map[string]any{"collection": collection, "ref_no": key},
	)
}

// CreateProject inserts a new project. The reference number is the key and
// must be unique.
func (s *Service) CreateProject(ctx context.Context, p Project) (Project, error) {
	if p.RefNo == "" {
		return Project{}, derrors.New(derrors.CodeBadRequest, "ref_no is required")
	}
	if err := ensureAbsent(ctx, s.projects, p.RefNo); err != nil {
		return Project{}, err
	}

	now := requestcontext.Now(ctx)
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if err := s.projects.Save(ctx, p.RefNo, p); err != nil {
		return Project{}, derrors.Wrap(err, derrors.CodeInternal, "failed to save project")
	}
	s.record(ctx, actionCreated, "project", p.RefNo)
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, refNo string) (Project, error) {
	return mustFind(ctx, s.projects, refNo)
}

func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	out, err := s.projects.List(ctx)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list projects")
	}
	return out, nil
}

// UpdateProject overwrites the mutable fields, preserving creation time.
func (s *Service) UpdateProject(ctx context.Context, p Project) (Project, error) {
	existing, err := mustFind(ctx, s.projects, p.RefNo)
	if err != nil {
		return Project{}, err
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.projects.Save(ctx, p.RefNo, p); err != nil {
		return Project{}, derrors.Wrap(err, derrors.CodeInternal, "failed to save project")
	}
	s.record(ctx, actionUpdated, "project", p.RefNo)
	return p, nil
}

func (s *Service) DeleteProject(ctx context.Context, refNo string) error {
	if err := s.projects.Delete(ctx, refNo); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return derrors.New(derrors.CodeNotFound, fmt.Sprintf("%s not found", refNo))
		}
		return derrors.Wrap(err, derrors.CodeInternal, "failed to delete project")
	}
	s.record(ctx, actionDeleted, "project", refNo)
	return nil
}

// CreateQuotation inserts a quotation. A non-empty project link must resolve.
func (s *Service) CreateQuotation(ctx context.Context, q Quotation) (Quotation, error) {
	if q.RefNo == "" {
		return Quotation{}, derrors.New(derrors.CodeBadRequest, "ref_no is required")
	}
	if q.ProjectRefNo != "" {
		if _, err := mustFind(ctx, s.projects, q.ProjectRefNo); err != nil {
			return Quotation{}, derrors.New(derrors.CodeBadRequest,
				fmt.Sprintf("linked project %s not found", q.ProjectRefNo))
		}
	}
	if err := ensureAbsent(ctx, s.quotations, q.RefNo); err != nil {
		return Quotation{}, err
	}

	now := requestcontext.Now(ctx)
	q.CreatedAt, q.UpdatedAt = now, now
	if q.Status == "" {
		q.Status = StatusDraft
	}
	if err := s.quotations.Save(ctx, q.RefNo, q); err != nil {
		return Quotation{}, derrors.Wrap(err, derrors.CodeInternal, "failed to save quotation")
	}
	s.record(ctx, actionCreated, "quotation", q.RefNo)
	return q, nil
}

func (s *Service) GetQuotation(ctx context.Context, refNo string) (Quotation, error) {
	return mustFind(ctx, s.quotations, refNo)
}

func (s *Service) ListQuotations(ctx context.Context) ([]Quotation, error) {
	out, err := s.quotations.List(ctx)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list quotations")
	}
	return out, nil
}

func (s *Service) DeleteQuotation(ctx context.Context, refNo string) error {
	if err := s.quotations.Delete(ctx, refNo); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return derrors.New(derrors.CodeNotFound, fmt.Sprintf("%s not found", refNo))
		}
		return derrors.Wrap(err, derrors.CodeInternal, "failed to delete quotation")
	}
	s.record(ctx, actionDeleted, "quotation", refNo)
	return nil
}

// CreatePurchaseOrder inserts a purchase order. A non-empty project link must
// resolve.
func (s *Service) CreatePurchaseOrder(ctx context.Context, o PurchaseOrder) (PurchaseOrder, error) {
	if o.RefNo == "" {
		return PurchaseOrder{}, derrors.New(derrors.CodeBadRequest, "ref_no is required")
	}
	if o.ProjectRefNo != "" {
		if _, err := mustFind(ctx, s.projects, o.ProjectRefNo); err != nil {
			return PurchaseOrder{}, derrors.New(derrors.CodeBadRequest,
				fmt.Sprintf("linked project %s not found", o.ProjectRefNo))
		}
	}
	if err := ensureAbsent(ctx, s.orders, o.RefNo); err != nil {
		return PurchaseOrder{}, err
	}

	now := requestcontext.Now(ctx)
	o.CreatedAt, o.UpdatedAt = now, now
	if o.Status == "" {
		o.Status = StatusDraft
	}
	if err := s.orders.Save(ctx, o.RefNo, o); err != nil {
		return PurchaseOrder{}, derrors.Wrap(err, derrors.CodeInternal, "failed to save purchase order")
	}
	s.record(ctx, actionCreated, "purchase_order", o.RefNo)
	return o, nil
}

func (s *Service) GetPurchaseOrder(ctx context.Context, refNo string) (PurchaseOrder, error) {
	return mustFind(ctx, s.orders, refNo)
}

func (s *Service) ListPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	out, err := s.orders.List(ctx)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list purchase orders")
	}
	return out, nil
}

func (s *Service) DeletePurchaseOrder(ctx context.Context, refNo string) error {
	if err := s.orders.Delete(ctx, refNo); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return derrors.New(derrors.CodeNotFound, fmt.Sprintf("%s not found", refNo))
		}
		return derrors.Wrap(err, derrors.CodeInternal, "failed to delete purchase order")
	}
	s.record(ctx, actionDeleted, "purchase_order", refNo)
	return nil
}

// CreateParty inserts a supplier or customer record keyed by name.
func (s *Service) CreateParty(ctx context.Context, p Party) (Party, error) {
	if p.Name == "" {
		return Party{}, derrors.New(derrors.CodeBadRequest, "name is required")
	}
	if p.Kind != PartySupplier && p.Kind != PartyCustomer {
		return Party{}, derrors.New(derrors.CodeBadRequest, "kind must be supplier or customer")
	}
	if err := ensureAbsent(ctx, s.parties, p.Name); err != nil {
		return Party{}, err
	}

	now := requestcontext.Now(ctx)
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.parties.Save(ctx, p.Name, p); err != nil {
		return Party{}, derrors.Wrap(err, derrors.CodeInternal, "failed to save party")
	}
	s.record(ctx, actionCreated, "party", p.Name)
	return p, nil
}

func (s *Service) ListParties(ctx context.Context) ([]Party, error) {
	out, err := s.parties.List(ctx)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list parties")
	}
	return out, nil
}

// LinkedData resolves the application-level joins for one project: every
// quotation and purchase order whose project reference matches. The join is
// computed per read; nothing is cached.
func (s *Service) LinkedData(ctx context.Context, projectRefNo string) (*LinkedData, error) {
	project, err := mustFind(ctx, s.projects, projectRefNo)
	if err != nil {
		return nil, err
	}

	quotations, err := s.quotations.List(ctx)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list quotations")
	}
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list purchase orders")
	}

	linked := &LinkedData{
		Project:        project,
		Quotations:     []Quotation{},
		PurchaseOrders: []PurchaseOrder{},
	}
	for _, q := range quotations {
		if q.ProjectRefNo == projectRefNo {
			linked.Quotations = append(linked.Quotations, q)
		}
	}
	for _, o := range orders {
		// Legacy purchase orders carry the project reference in their own
		// RefNo instead of ProjectRefNo; both spellings join.
		if o.ProjectRefNo == projectRefNo || o.RefNo == projectRefNo {
			linked.PurchaseOrders = append(linked.PurchaseOrders, o)
		}
	}
	return linked, nil
}
