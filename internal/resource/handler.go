package resource

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"medirecords/pkg/apierror"
	"medirecords/pkg/logger"
	"medirecords/store"
)

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

type createResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register mounts the five operations under prefix. Mutations pass through gate.
func (h *Handler) Register(r *mux.Router, prefix string, gate func(http.Handler) http.Handler) {
	item := prefix + "/{id}"

	r.HandleFunc(prefix, h.List).Methods(http.MethodGet)
	r.Handle(prefix, gate(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	r.HandleFunc(item, h.Get).Methods(http.MethodGet)
	r.Handle(item, gate(http.HandlerFunc(h.Update))).Methods(http.MethodPut)
	r.Handle(item, gate(http.HandlerFunc(h.Delete))).Methods(http.MethodDelete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, docs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.Service.Create(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	logger.Sugar.Infof("%s %s created", h.Service.Spec.Entity, id)
	apierror.WriteJSON(w, http.StatusCreated, createResponse{
		Message: h.Service.Spec.Entity + " created successfully",
		ID:      id,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !store.IsValidID(id) {
		h.fail(w, r, h.Service.invalidID())
		return
	}

	payload, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Service.Update(r.Context(), id, payload); err != nil {
		h.fail(w, r, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, messageResponse{Message: h.Service.Spec.Entity + " updated successfully"})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	logger.Sugar.Infof("%s %s deleted", h.Service.Spec.Entity, id)
	apierror.WriteJSON(w, http.StatusOK, messageResponse{Message: h.Service.Spec.Entity + " deleted successfully"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apierror.KindOf(err) == apierror.StoreError {
		logger.Sugar.Errorf("Handler: %s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		logger.Sugar.Debugf("Handler: %s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	apierror.Write(w, err)
}

// decodeBody reads a JSON object. An empty body is an empty payload.
func decodeBody(r *http.Request) (map[string]any, error) {
	payload := map[string]any{}
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err == nil || errors.Is(err, io.EOF) {
		if payload == nil {
			payload = map[string]any{}
		}
		return payload, nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, apierror.Wrap(apierror.ValidationFailed, "Request body too large", err)
	}
	return nil, apierror.Wrap(apierror.ValidationFailed, "Invalid request body", err)
}
