package resource

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medirecords/pkg/apierror"
	"medirecords/store"
)

// Change feed event types.
const (
	EventCreated = "CREATED"
	EventUpdated = "UPDATED"
	EventDeleted = "DELETED"
)

// Notifier receives a message after every successful mutation.
type Notifier interface {
	Notify(collection, event, id string, doc store.Document)
}

type Service struct {
	Spec   Spec
	Repo   *Repository
	Events Notifier
	Now    func() time.Time
}

func NewService(spec Spec, repo *Repository, events Notifier) *Service {
	return &Service{Spec: spec, Repo: repo, Events: events, Now: time.Now}
}

// List returns every document in insertion order, never nil.
func (s *Service) List(ctx context.Context) ([]store.Document, error) {
	docs, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, s.storeError(err)
	}
	if docs == nil {
		docs = []store.Document{}
	}
	return docs, nil
}

func (s *Service) Get(ctx context.Context, id string) (store.Document, error) {
	if !store.IsValidID(id) {
		return nil, s.invalidID()
	}
	id = canonicalID(id)
	doc, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.notFound()
	}
	if err != nil {
		return nil, s.storeError(err)
	}
	return doc, nil
}

// Create inserts a document built from the declared fields of input and
// returns its new identifier.
func (s *Service) Create(ctx context.Context, input map[string]any) (string, error) {
	doc, err := s.buildDocument(input)
	if err != nil {
		return "", err
	}
	if s.Spec.Timestamps {
		now := s.timestamp()
		doc[CreatedAtField] = now
		doc[UpdatedAtField] = now
	}

	id, err := s.Repo.Insert(ctx, doc)
	if err != nil {
		return "", s.storeError(err)
	}
	s.notify(EventCreated, id, doc)
	return id, nil
}

// Update merges payload into the document with the given id.
func (s *Service) Update(ctx context.Context, id string, payload map[string]any) error {
	if !store.IsValidID(id) {
		return s.invalidID()
	}
	id = canonicalID(id)
	patch := stripImmutable(payload)
	if len(patch) == 0 {
		return apierror.New(apierror.EmptyUpdate, "No valid fields to update")
	}
	if err := checkFieldNames(patch); err != nil {
		return err
	}
	for name, v := range patch {
		f, ok := s.Spec.field(name)
		if !ok {
			continue
		}
		converted, err := convert(f, v)
		if err != nil {
			return err
		}
		patch[name] = converted
	}
	if s.Spec.Timestamps {
		patch[UpdatedAtField] = s.timestamp()
	}

	matched, err := s.Repo.UpdateByID(ctx, id, patch)
	if err != nil {
		return s.storeError(err)
	}
	if matched == 0 {
		return s.notFound()
	}
	s.notify(EventUpdated, id, patch)
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if !store.IsValidID(id) {
		return s.invalidID()
	}
	id = canonicalID(id)
	deleted, err := s.Repo.DeleteByID(ctx, id)
	if err != nil {
		return s.storeError(err)
	}
	if deleted == 0 {
		return s.notFound()
	}
	s.notify(EventDeleted, id, nil)
	return nil
}

func (s *Service) buildDocument(input map[string]any) (store.Document, error) {
	// Reference fields are identifiers, so they are checked before anything else.
	for _, f := range s.Spec.Fields {
		if f.Kind == ReferenceField && present(input[f.Name]) {
			if _, err := convert(f, input[f.Name]); err != nil {
				return nil, err
			}
		}
	}

	var missing []string
	for _, f := range s.Spec.Fields {
		if f.Required && !present(input[f.Name]) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, apierror.New(apierror.ValidationFailed, "Missing required fields: %s", strings.Join(missing, ", "))
	}

	doc := make(store.Document, len(s.Spec.Fields)+2)
	for _, f := range s.Spec.Fields {
		v := input[f.Name]
		if !present(v) {
			doc[f.Name] = zeroValue(f)
			continue
		}
		converted, err := convert(f, v)
		if err != nil {
			return nil, err
		}
		doc[f.Name] = converted
	}
	return doc, nil
}

func (s *Service) timestamp() time.Time {
	// Stores keep millisecond precision.
	return s.Now().UTC().Truncate(time.Millisecond)
}

func (s *Service) notify(event, id string, doc store.Document) {
	if s.Events == nil {
		return
	}
	payload := make(store.Document, len(doc)+1)
	for k, v := range doc {
		payload[k] = v
	}
	payload[store.IDField] = id
	s.Events.Notify(s.Spec.Collection, event, id, payload)
}

func (s *Service) invalidID() error {
	return apierror.New(apierror.InvalidIdentifier, "Invalid %s ID", s.Spec.noun())
}

func (s *Service) notFound() error {
	return apierror.New(apierror.NotFound, "%s not found", s.Spec.Entity)
}

func (s *Service) storeError(err error) error {
	return apierror.Wrap(apierror.StoreError, apierror.GenericMessage, err)
}

// canonicalID lowercases a valid identifier; stores keep ids in lowercase hex.
func canonicalID(id string) string {
	return strings.ToLower(id)
}

// checkFieldNames rejects keys a document store would read as operators or paths.
func checkFieldNames(patch store.Document) error {
	names := make([]string, 0, len(patch))
	for name := range patch {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "" || strings.HasPrefix(name, "$") || strings.Contains(name, ".") {
			return apierror.New(apierror.ValidationFailed, "Invalid field name %q", name)
		}
	}
	return nil
}

// present reports whether a create payload value counts as supplied.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	}
	return true
}

func zeroValue(f Field) any {
	if f.Kind == TextField {
		return ""
	}
	return nil
}

// convert coerces a payload value to the field's declared kind.
func convert(f Field, v any) (any, error) {
	switch f.Kind {
	case NumberField:
		n, ok := toNumber(v)
		if !ok {
			return nil, apierror.New(apierror.ValidationFailed, "%s must be a number", f.Name)
		}
		return n, nil
	case ReferenceField:
		s, ok := v.(string)
		if !ok || !store.IsValidID(s) {
			return nil, apierror.New(apierror.InvalidIdentifier, "Invalid %s", f.Name)
		}
		oid, _ := primitive.ObjectIDFromHex(s)
		return oid, nil
	default:
		switch val := v.(type) {
		case string:
			return val, nil
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(val), nil
		}
		return nil, apierror.New(apierror.ValidationFailed, "%s must be a string", f.Name)
	}
}

func toNumber(v any) (float64, bool) {
	var n float64
	switch val := v.(type) {
	case float64:
		n = val
	case int:
		n = float64(val)
	case int64:
		n = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
